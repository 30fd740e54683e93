package services

import (
	"strings"
	"testing"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

func fullAnswers() models.QuoteAnswers {
	return models.QuoteAnswers{
		ServiceType: "conserto",
		Timeline:    "asap",
		Budget:      "under15k",
		PhotosNote:  SelPhotosSent,
		Contact:     "João, (11) 90000-0000",
	}
}

func TestConfirmationRendersAllAnswers(t *testing.T) {
	catalog := NewTemplateCatalog()

	tmpl, err := catalog.Confirmation(fullAnswers())
	if err != nil {
		t.Fatalf("Confirmation failed: %v", err)
	}

	text := tmpl.PlainText()
	for _, want := range []string{
		ServiceTypeLabels["conserto"],
		TimelineLabels["asap"],
		BudgetLabels["under15k"],
		"Fotos enviadas",
		"João, (11) 90000-0000",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("confirmation summary missing %q:\n%s", want, text)
		}
	}
}

func TestConfirmationRejectsIncompleteAnswers(t *testing.T) {
	catalog := NewTemplateCatalog()

	cases := []struct {
		name   string
		mutate func(*models.QuoteAnswers)
	}{
		{"missing service", func(a *models.QuoteAnswers) { a.ServiceType = "" }},
		{"unknown service", func(a *models.QuoteAnswers) { a.ServiceType = "pintura" }},
		{"missing timeline", func(a *models.QuoteAnswers) { a.Timeline = "" }},
		{"missing budget", func(a *models.QuoteAnswers) { a.Budget = "" }},
		{"missing contact", func(a *models.QuoteAnswers) { a.Contact = "   " }},
	}

	for _, tc := range cases {
		answers := fullAnswers()
		tc.mutate(&answers)
		if _, err := catalog.Confirmation(answers); err == nil {
			t.Errorf("%s: Confirmation accepted incomplete answers", tc.name)
		}
	}
}

func TestConfirmationSkippedPhotos(t *testing.T) {
	catalog := NewTemplateCatalog()

	answers := fullAnswers()
	answers.PhotosNote = SelSkipPhotos
	tmpl, err := catalog.Confirmation(answers)
	if err != nil {
		t.Fatalf("Confirmation failed: %v", err)
	}
	if !strings.Contains(tmpl.PlainText(), "Sem fotos") {
		t.Errorf("skipped photos not reflected in summary:\n%s", tmpl.PlainText())
	}
}

func TestWelcomePersonalizesGreeting(t *testing.T) {
	catalog := NewTemplateCatalog()

	named := catalog.Welcome("Carlos").PlainText()
	if !strings.Contains(named, "Carlos") {
		t.Errorf("welcome with name missing the name:\n%s", named)
	}

	anonymous := catalog.Welcome("").PlainText()
	if !strings.Contains(anonymous, "Olá!") {
		t.Errorf("anonymous welcome missing the plain greeting:\n%s", anonymous)
	}
}

func TestMainMenuCarriesAllSelectionIDs(t *testing.T) {
	catalog := NewTemplateCatalog()

	menu, ok := catalog.MainMenu().(ListTemplate)
	if !ok {
		t.Fatalf("main menu is %T, want ListTemplate", catalog.MainMenu())
	}

	ids := map[string]bool{}
	for _, s := range menu.Sections {
		for _, r := range s.Rows {
			ids[r.ID] = true
		}
	}
	for _, want := range []string{SelRequestQuote, SelViewServices, SelViewPortfolio, SelFAQ, SelTalkHuman} {
		if !ids[want] {
			t.Errorf("main menu missing option %s", want)
		}
	}
}
