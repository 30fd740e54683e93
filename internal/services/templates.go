package services

import (
	"fmt"
	"strings"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

// Template is the tagged union of everything the bot can send: plain
// text, quick-reply buttons or a section list. The dispatcher switches
// on the concrete type to pick the gateway call.
type Template interface {
	// PlainText renders the template as loggable text, also used as the
	// stored content of the outbound message row.
	PlainText() string
}

// TextTemplate is a plain text message
type TextTemplate struct {
	Body string
}

func (t TextTemplate) PlainText() string { return t.Body }

// ButtonOption is one quick-reply button (stable id + display label)
type ButtonOption struct {
	ID    string
	Label string
}

// ButtonTemplate is an interactive quick-reply message
type ButtonTemplate struct {
	Title   string
	Body    string
	Footer  string
	Buttons []ButtonOption
}

func (t ButtonTemplate) PlainText() string {
	var b strings.Builder
	b.WriteString(t.Body)
	for _, btn := range t.Buttons {
		b.WriteString("\n• " + btn.Label)
	}
	return b.String()
}

// ListRow is one selectable row in a list message
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows under a section title
type ListSection struct {
	Title string
	Rows  []ListRow
}

// ListTemplate is an interactive list message
type ListTemplate struct {
	Title       string
	Body        string
	ButtonLabel string
	Footer      string
	Sections    []ListSection
}

func (t ListTemplate) PlainText() string {
	var b strings.Builder
	b.WriteString(t.Body)
	for _, s := range t.Sections {
		for _, r := range s.Rows {
			b.WriteString("\n• " + r.Title)
		}
	}
	return b.String()
}

// Selection ids attached to interactive options. The flow routes on
// these, never on display labels.
const (
	SelRequestQuote  = "request_quote"
	SelViewServices  = "view_services"
	SelViewPortfolio = "view_portfolio"
	SelTalkHuman     = "talk_human"
	SelFAQ           = "faq"
	SelBackToMenu    = "back_to_menu"
	SelMenu          = "menu"
	SelMoreOptions   = "more_options"
	SelSkipPhotos    = "skip"
	SelPhotosSent    = "photos_sent"
)

// ServiceTypeLabels maps service selection ids to display labels
var ServiceTypeLabels = map[string]string{
	"conserto":    "Conserto de câmbio",
	"revisao":     "Revisão preventiva",
	"troca_oleo":  "Troca de óleo do câmbio",
	"diagnostico": "Diagnóstico eletrônico",
}

// TimelineLabels maps timeline selection ids to display labels. The
// entries after este_mes live in the extended option set.
var TimelineLabels = map[string]string{
	"asap":        "O quanto antes",
	"esta_semana": "Esta semana",
	"este_mes":    "Este mês",
	"proximo_mes": "Próximo mês",
	"sem_pressa":  "Sem pressa",
}

// BudgetLabels maps budget selection ids to display labels. over50k and
// nao_sei live in the extended option set.
var BudgetLabels = map[string]string{
	"under15k": "Até R$ 15 mil",
	"15k_30k":  "R$ 15 a 30 mil",
	"30k_50k":  "R$ 30 a 50 mil",
	"over50k":  "Acima de R$ 50 mil",
	"nao_sei":  "Ainda não sei",
}

// TemplateCatalog renders the conversational content for each step.
// Rendering is pure: same step and answers always produce the same
// template.
type TemplateCatalog struct{}

// NewTemplateCatalog creates the template catalog
func NewTemplateCatalog() *TemplateCatalog {
	return &TemplateCatalog{}
}

func mainMenuSections() []ListSection {
	return []ListSection{
		{
			Title: "Atendimento",
			Rows: []ListRow{
				{ID: SelRequestQuote, Title: "Solicitar orçamento", Description: "Orçamento guiado em poucos passos"},
				{ID: SelViewServices, Title: "Nossos serviços", Description: "O que fazemos por aqui"},
				{ID: SelViewPortfolio, Title: "Trabalhos realizados", Description: "Antes e depois de clientes"},
				{ID: SelFAQ, Title: "Dúvidas frequentes", Description: "Garantia, prazos e pagamento"},
				{ID: SelTalkHuman, Title: "Falar com atendente", Description: "Transferir para um humano"},
			},
		},
	}
}

// Welcome greets a first-time contact and already carries the main menu
func (c *TemplateCatalog) Welcome(customerName string) Template {
	greeting := "Olá"
	if customerName != "" {
		greeting = "Olá, " + customerName
	}
	return ListTemplate{
		Title:       "RG Transmissões",
		Body:        greeting + "! 👋 Bem-vindo à RG Transmissões, especialistas em câmbio automático e mecânico.\n\nComo podemos ajudar hoje?",
		ButtonLabel: "Ver opções",
		Footer:      "Seg a Sex, 8h às 18h",
		Sections:    mainMenuSections(),
	}
}

// MainMenu is the hub the side branches return to
func (c *TemplateCatalog) MainMenu() Template {
	return ListTemplate{
		Title:       "Menu principal",
		Body:        "Escolha uma das opções abaixo 👇",
		ButtonLabel: "Ver opções",
		Sections:    mainMenuSections(),
	}
}

// ServiceTypePrompt asks which service the quote is for
func (c *TemplateCatalog) ServiceTypePrompt() Template {
	return ListTemplate{
		Title:       "Orçamento",
		Body:        "Vamos montar seu orçamento! 🔧\n\nQual serviço você precisa?",
		ButtonLabel: "Escolher serviço",
		Sections: []ListSection{
			{
				Title: "Serviços",
				Rows: []ListRow{
					{ID: "conserto", Title: ServiceTypeLabels["conserto"], Description: "Reparo completo ou parcial"},
					{ID: "revisao", Title: ServiceTypeLabels["revisao"], Description: "Checagem preventiva do câmbio"},
					{ID: "troca_oleo", Title: ServiceTypeLabels["troca_oleo"], Description: "Fluido e filtro"},
					{ID: "diagnostico", Title: ServiceTypeLabels["diagnostico"], Description: "Leitura de falhas no scanner"},
				},
			},
		},
	}
}

// TimelinePrompt asks when the customer needs the service. The extended
// flag swaps in the longer option set reached via more_options.
func (c *TemplateCatalog) TimelinePrompt(extended bool) Template {
	rows := []ListRow{
		{ID: "asap", Title: TimelineLabels["asap"], Description: "Preciso do carro rodando já"},
		{ID: "esta_semana", Title: TimelineLabels["esta_semana"]},
		{ID: "este_mes", Title: TimelineLabels["este_mes"]},
		{ID: SelMoreOptions, Title: "Mais opções…"},
	}
	if extended {
		rows = []ListRow{
			{ID: "asap", Title: TimelineLabels["asap"]},
			{ID: "esta_semana", Title: TimelineLabels["esta_semana"]},
			{ID: "este_mes", Title: TimelineLabels["este_mes"]},
			{ID: "proximo_mes", Title: TimelineLabels["proximo_mes"]},
			{ID: "sem_pressa", Title: TimelineLabels["sem_pressa"], Description: "Só pesquisando por enquanto"},
		}
	}
	return ListTemplate{
		Title:       "Prazo",
		Body:        "Para quando você precisa do serviço? ⏱️",
		ButtonLabel: "Escolher prazo",
		Sections:    []ListSection{{Title: "Prazos", Rows: rows}},
	}
}

// BudgetPrompt asks for the budget band. The extended flag swaps in the
// longer option set reached via more_options.
func (c *TemplateCatalog) BudgetPrompt(extended bool) Template {
	rows := []ListRow{
		{ID: "under15k", Title: BudgetLabels["under15k"]},
		{ID: "15k_30k", Title: BudgetLabels["15k_30k"]},
		{ID: "30k_50k", Title: BudgetLabels["30k_50k"]},
		{ID: SelMoreOptions, Title: "Mais opções…"},
	}
	if extended {
		rows = []ListRow{
			{ID: "under15k", Title: BudgetLabels["under15k"]},
			{ID: "15k_30k", Title: BudgetLabels["15k_30k"]},
			{ID: "30k_50k", Title: BudgetLabels["30k_50k"]},
			{ID: "over50k", Title: BudgetLabels["over50k"]},
			{ID: "nao_sei", Title: BudgetLabels["nao_sei"], Description: "Quero uma avaliação primeiro"},
		}
	}
	return ListTemplate{
		Title:       "Faixa de valor",
		Body:        "Qual faixa de valor você tem em mente? 💰",
		ButtonLabel: "Escolher faixa",
		Sections:    []ListSection{{Title: "Faixas", Rows: rows}},
	}
}

// PhotosPrompt is a soft checkpoint: photos help the quote but are optional
func (c *TemplateCatalog) PhotosPrompt() Template {
	return ButtonTemplate{
		Title: "Fotos",
		Body:  "Se puder, envie fotos ou vídeos do problema (painel, vazamento, etc). Isso agiliza muito o orçamento! 📸\n\nOu toque em *Pular* para seguir sem fotos.",
		Buttons: []ButtonOption{
			{ID: SelPhotosSent, Label: "Enviei as fotos"},
			{ID: SelSkipPhotos, Label: "Pular"},
		},
	}
}

// ContactPrompt asks for free-text contact confirmation
func (c *TemplateCatalog) ContactPrompt() Template {
	return TextTemplate{
		Body: "Para finalizar, me confirme seu *nome* e um *telefone para retorno* (pode ser este mesmo). ✍️",
	}
}

// Confirmation renders the quote summary from the collected answers.
// Every quote field gathered by the flow is required here; a missing one
// is an error, never a panic.
func (c *TemplateCatalog) Confirmation(answers models.QuoteAnswers) (Template, error) {
	serviceLabel, ok := ServiceTypeLabels[answers.ServiceType]
	if !ok {
		return nil, fmt.Errorf("confirmation summary: unknown or missing service type %q", answers.ServiceType)
	}
	timelineLabel, ok := TimelineLabels[answers.Timeline]
	if !ok {
		return nil, fmt.Errorf("confirmation summary: unknown or missing timeline %q", answers.Timeline)
	}
	budgetLabel, ok := BudgetLabels[answers.Budget]
	if !ok {
		return nil, fmt.Errorf("confirmation summary: unknown or missing budget %q", answers.Budget)
	}
	if strings.TrimSpace(answers.Contact) == "" {
		return nil, fmt.Errorf("confirmation summary: missing contact")
	}

	photos := "Sem fotos"
	if answers.PhotosNote == SelPhotosSent {
		photos = "Fotos enviadas"
	}

	body := fmt.Sprintf(
		"Perfeito, recebemos seu pedido de orçamento! ✅\n\n"+
			"*Resumo*\n"+
			"🔧 Serviço: %s\n"+
			"⏱️ Prazo: %s\n"+
			"💰 Faixa: %s\n"+
			"📸 %s\n"+
			"📞 Contato: %s\n\n"+
			"Nossa equipe retorna em até 1 dia útil com os valores.",
		serviceLabel, timelineLabel, budgetLabel, photos, answers.Contact,
	)

	return ButtonTemplate{
		Title:   "Orçamento recebido",
		Body:    body,
		Buttons: []ButtonOption{{ID: SelBackToMenu, Label: "Voltar ao menu"}},
	}, nil
}

func secondaryMenuButtons() []ButtonOption {
	return []ButtonOption{
		{ID: SelBackToMenu, Label: "Menu principal"},
		{ID: SelTalkHuman, Label: "Falar com atendente"},
		{ID: SelFAQ, Label: "Dúvidas frequentes"},
	}
}

// ServiceInfo is the static services page
func (c *TemplateCatalog) ServiceInfo() Template {
	return ButtonTemplate{
		Title: "Nossos serviços",
		Body: "🔧 *O que fazemos*\n\n" +
			"• Conserto e retífica de câmbio automático e mecânico\n" +
			"• Revisão preventiva com test drive\n" +
			"• Troca de óleo e filtro do câmbio\n" +
			"• Diagnóstico eletrônico com scanner\n" +
			"• Garantia de até 1 ano em serviços de retífica",
		Buttons: secondaryMenuButtons(),
	}
}

// Portfolio is the static portfolio page
func (c *TemplateCatalog) Portfolio() Template {
	return ButtonTemplate{
		Title: "Trabalhos realizados",
		Body: "📷 *Trabalhos recentes*\n\n" +
			"Veja fotos de antes e depois no nosso site:\n" +
			"https://rgtransmissoes.com.br/galeria\n\n" +
			"São mais de 20 anos de câmbios recuperados.",
		Buttons: secondaryMenuButtons(),
	}
}

// FAQ is the static FAQ page
func (c *TemplateCatalog) FAQ() Template {
	return ButtonTemplate{
		Title: "Dúvidas frequentes",
		Body: "❓ *Perguntas frequentes*\n\n" +
			"*Tem garantia?* Sim, até 1 ano na retífica.\n" +
			"*Qual o prazo médio?* De 3 a 7 dias úteis.\n" +
			"*Formas de pagamento?* Cartão em até 12x, Pix e dinheiro.\n" +
			"*Buscam o carro?* Sim, temos guincho parceiro.",
		Buttons: secondaryMenuButtons(),
	}
}

// Handoff tells the customer a human is taking over
func (c *TemplateCatalog) Handoff() Template {
	return TextTemplate{
		Body: "Certo! 👤 Um atendente vai assumir a conversa em instantes.\n\nSe quiser voltar ao atendimento automático, é só digitar *menu*.",
	}
}
