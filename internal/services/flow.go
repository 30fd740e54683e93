package services

import (
	"log"
	"strings"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

// FlowInput is one normalized customer reply: free text, or a selection
// id when the customer tapped an interactive button/list option.
type FlowInput struct {
	Text        string
	SelectionID string
}

// Selection returns the id to route on. A tapped option wins; free text
// falls back to its trimmed lowercase form so typed commands like "menu"
// still work.
func (in FlowInput) Selection() string {
	if in.SelectionID != "" {
		return in.SelectionID
	}
	return strings.ToLower(strings.TrimSpace(in.Text))
}

// FlowResult is the outcome of one transition: where the conversation
// lands, the (possibly updated) answers, what to send, and whether the
// conversation's status changes. A nil Reply means stay silent.
type FlowResult struct {
	NextStep models.ConversationStep
	Answers  models.QuoteAnswers
	Reply    Template
	Status   models.ConversationStatus // empty = unchanged
}

// Changed reports whether the transition moved the persisted cursor
func (r FlowResult) Changed(step models.ConversationStep, answers models.QuoteAnswers) bool {
	return r.NextStep != step || r.Answers != answers
}

// Flow is the guided-quote state machine. Transition is a pure function
// of (step, answers, input): no I/O, no clock, so the whole flow is
// testable without a live gateway.
type Flow struct {
	catalog *TemplateCatalog
}

// NewFlow creates the state machine with its template catalog
func NewFlow() *Flow {
	return &Flow{catalog: NewTemplateCatalog()}
}

// Transition advances the conversation one step. customerName is only
// used to personalize the welcome greeting.
func (f *Flow) Transition(step models.ConversationStep, answers models.QuoteAnswers, input FlowInput, customerName string) FlowResult {
	sel := input.Selection()

	switch step {
	case models.StepWelcome:
		// The first message only triggers the greeting; its content is
		// not treated as flow input.
		return FlowResult{
			NextStep: models.StepMainMenu,
			Answers:  answers,
			Reply:    f.catalog.Welcome(customerName),
		}

	case models.StepMainMenu:
		switch sel {
		case SelRequestQuote:
			return FlowResult{NextStep: models.StepQuoteServiceType, Answers: answers, Reply: f.catalog.ServiceTypePrompt()}
		case SelViewServices:
			return FlowResult{NextStep: models.StepServiceInfo, Answers: answers, Reply: f.catalog.ServiceInfo()}
		case SelViewPortfolio:
			return FlowResult{NextStep: models.StepPortfolio, Answers: answers, Reply: f.catalog.Portfolio()}
		case SelFAQ:
			return FlowResult{NextStep: models.StepFAQ, Answers: answers, Reply: f.catalog.FAQ()}
		case SelTalkHuman:
			return f.handoff(answers)
		default:
			// Free text instead of a tap: re-send the menu, never error.
			return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.MainMenu()}
		}

	case models.StepQuoteServiceType:
		if _, ok := ServiceTypeLabels[sel]; ok {
			updated := answers
			updated.ServiceType = sel
			return FlowResult{NextStep: models.StepQuoteTimeline, Answers: updated, Reply: f.catalog.TimelinePrompt(false)}
		}
		return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.ServiceTypePrompt()}

	case models.StepQuoteTimeline:
		if sel == SelMoreOptions {
			return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.TimelinePrompt(true)}
		}
		if _, ok := TimelineLabels[sel]; ok {
			updated := answers
			updated.Timeline = sel
			return FlowResult{NextStep: models.StepQuoteBudget, Answers: updated, Reply: f.catalog.BudgetPrompt(false)}
		}
		return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.TimelinePrompt(false)}

	case models.StepQuoteBudget:
		if sel == SelMoreOptions {
			return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.BudgetPrompt(true)}
		}
		if _, ok := BudgetLabels[sel]; ok {
			updated := answers
			updated.Budget = sel
			return FlowResult{NextStep: models.StepQuotePhotos, Answers: updated, Reply: f.catalog.PhotosPrompt()}
		}
		return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.BudgetPrompt(false)}

	case models.StepQuotePhotos:
		// Soft checkpoint: either signal advances, no media handling here.
		switch sel {
		case SelSkipPhotos, SelPhotosSent:
			updated := answers
			updated.PhotosNote = sel
			return FlowResult{NextStep: models.StepQuoteContact, Answers: updated, Reply: f.catalog.ContactPrompt()}
		default:
			// Anything else (a photo caption, a stray message) counts as
			// photos having been sent.
			updated := answers
			updated.PhotosNote = SelPhotosSent
			return FlowResult{NextStep: models.StepQuoteContact, Answers: updated, Reply: f.catalog.ContactPrompt()}
		}

	case models.StepQuoteContact:
		text := strings.TrimSpace(input.Text)
		if text == "" && input.SelectionID == "" {
			return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.ContactPrompt()}
		}
		if text == "" {
			text = input.SelectionID
		}
		updated := answers
		updated.Contact = text
		summary, err := f.catalog.Confirmation(updated)
		if err != nil {
			// Missing quote field at summary time: degrade to
			// re-prompting rather than crashing the webhook.
			log.Printf("⚠️ Failed to render confirmation summary: %v", err)
			return FlowResult{NextStep: step, Answers: answers, Reply: f.catalog.ContactPrompt()}
		}
		return FlowResult{
			NextStep: models.StepQuoteConfirm,
			Answers:  updated,
			Reply:    summary,
			Status:   models.ConversationCompleted,
		}

	case models.StepQuoteConfirm:
		if sel == SelBackToMenu || sel == SelMenu {
			return FlowResult{NextStep: models.StepMainMenu, Answers: answers, Reply: f.catalog.MainMenu()}
		}
		summary, err := f.catalog.Confirmation(answers)
		if err != nil {
			log.Printf("⚠️ Failed to re-render confirmation summary: %v", err)
			return FlowResult{NextStep: models.StepMainMenu, Answers: answers, Reply: f.catalog.MainMenu()}
		}
		return FlowResult{NextStep: step, Answers: answers, Reply: summary}

	case models.StepServiceInfo, models.StepPortfolio, models.StepFAQ:
		switch sel {
		case SelBackToMenu, SelMenu:
			return FlowResult{NextStep: models.StepMainMenu, Answers: answers, Reply: f.catalog.MainMenu()}
		case SelTalkHuman:
			return f.handoff(answers)
		case SelFAQ:
			return FlowResult{NextStep: models.StepFAQ, Answers: answers, Reply: f.catalog.FAQ()}
		default:
			return FlowResult{NextStep: step, Answers: answers, Reply: f.infoPage(step)}
		}

	case models.StepHumanHandoff:
		// Frozen: a human owns the conversation. Only an explicit menu
		// request resumes the bot.
		if sel == SelMenu || sel == SelBackToMenu {
			return FlowResult{
				NextStep: models.StepMainMenu,
				Answers:  answers,
				Reply:    f.catalog.MainMenu(),
				Status:   models.ConversationActive,
			}
		}
		return FlowResult{NextStep: step, Answers: answers}

	default:
		// Unknown persisted step (e.g. a removed enum value): recover by
		// falling back to the main menu.
		log.Printf("⚠️ Unknown conversation step %q, resetting to main menu", step)
		return FlowResult{NextStep: models.StepMainMenu, Answers: answers, Reply: f.catalog.MainMenu()}
	}
}

func (f *Flow) handoff(answers models.QuoteAnswers) FlowResult {
	return FlowResult{
		NextStep: models.StepHumanHandoff,
		Answers:  answers,
		Reply:    f.catalog.Handoff(),
		Status:   models.ConversationHandedOff,
	}
}

func (f *Flow) infoPage(step models.ConversationStep) Template {
	switch step {
	case models.StepPortfolio:
		return f.catalog.Portfolio()
	case models.StepFAQ:
		return f.catalog.FAQ()
	default:
		return f.catalog.ServiceInfo()
	}
}
