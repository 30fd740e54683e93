package services

import (
	"reflect"
	"testing"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

func TestTransitionIsDeterministic(t *testing.T) {
	flow := NewFlow()

	cases := []struct {
		step  models.ConversationStep
		input FlowInput
	}{
		{models.StepWelcome, FlowInput{Text: "oi"}},
		{models.StepMainMenu, FlowInput{SelectionID: SelRequestQuote}},
		{models.StepQuoteServiceType, FlowInput{SelectionID: "conserto"}},
		{models.StepQuoteTimeline, FlowInput{SelectionID: SelMoreOptions}},
		{models.StepHumanHandoff, FlowInput{Text: "alguém aí?"}},
	}

	for _, tc := range cases {
		first := flow.Transition(tc.step, models.QuoteAnswers{}, tc.input, "João")
		second := flow.Transition(tc.step, models.QuoteAnswers{}, tc.input, "João")
		if !reflect.DeepEqual(first, second) {
			t.Errorf("transition from %s with %+v is not deterministic", tc.step, tc.input)
		}
	}
}

func TestTransitionWelcomeAlwaysAdvances(t *testing.T) {
	flow := NewFlow()

	// The first message's content is not flow input, whatever it says
	for _, text := range []string{"oi", "quero um orçamento", "asdfgh"} {
		result := flow.Transition(models.StepWelcome, models.QuoteAnswers{}, FlowInput{Text: text}, "Maria")
		if result.NextStep != models.StepMainMenu {
			t.Errorf("welcome with %q landed on %s, want %s", text, result.NextStep, models.StepMainMenu)
		}
		if result.Reply == nil {
			t.Errorf("welcome with %q produced no greeting", text)
		}
	}
}

func TestTransitionQuoteHappyPath(t *testing.T) {
	flow := NewFlow()
	answers := models.QuoteAnswers{}
	step := models.StepMainMenu

	steps := []struct {
		input    FlowInput
		wantStep models.ConversationStep
	}{
		{FlowInput{SelectionID: SelRequestQuote}, models.StepQuoteServiceType},
		{FlowInput{SelectionID: "conserto"}, models.StepQuoteTimeline},
		{FlowInput{SelectionID: "asap"}, models.StepQuoteBudget},
		{FlowInput{SelectionID: "under15k"}, models.StepQuotePhotos},
		{FlowInput{SelectionID: SelSkipPhotos}, models.StepQuoteContact},
		{FlowInput{Text: "João, (11) 90000-0000"}, models.StepQuoteConfirm},
	}

	var last FlowResult
	for i, s := range steps {
		last = flow.Transition(step, answers, s.input, "João")
		if last.NextStep != s.wantStep {
			t.Fatalf("step %d: landed on %s, want %s", i, last.NextStep, s.wantStep)
		}
		if last.Reply == nil {
			t.Fatalf("step %d: no reply rendered", i)
		}
		step = last.NextStep
		answers = last.Answers
	}

	if last.Status != models.ConversationCompleted {
		t.Errorf("completed quote left status %q, want %q", last.Status, models.ConversationCompleted)
	}
	want := models.QuoteAnswers{
		ServiceType: "conserto",
		Timeline:    "asap",
		Budget:      "under15k",
		PhotosNote:  SelSkipPhotos,
		Contact:     "João, (11) 90000-0000",
	}
	if answers != want {
		t.Errorf("collected answers = %+v, want %+v", answers, want)
	}
}

func TestTransitionInvalidSelectionReprompts(t *testing.T) {
	flow := NewFlow()
	answers := models.QuoteAnswers{ServiceType: "conserto"}

	result := flow.Transition(models.StepQuoteTimeline, answers, FlowInput{Text: "não sei"}, "")
	if result.NextStep != models.StepQuoteTimeline {
		t.Errorf("invalid timeline input advanced to %s", result.NextStep)
	}
	if result.Answers != answers {
		t.Errorf("invalid input mutated answers: %+v", result.Answers)
	}
	if result.Reply == nil {
		t.Error("invalid input produced no re-prompt")
	}
}

func TestTransitionMoreOptionsStaysOnStep(t *testing.T) {
	flow := NewFlow()

	result := flow.Transition(models.StepQuoteTimeline, models.QuoteAnswers{}, FlowInput{SelectionID: SelMoreOptions}, "")
	if result.NextStep != models.StepQuoteTimeline {
		t.Errorf("more_options advanced to %s", result.NextStep)
	}
	list, ok := result.Reply.(ListTemplate)
	if !ok {
		t.Fatalf("extended timeline prompt is %T, want ListTemplate", result.Reply)
	}
	ids := map[string]bool{}
	for _, s := range list.Sections {
		for _, r := range s.Rows {
			ids[r.ID] = true
		}
	}
	if !ids["proximo_mes"] || !ids["sem_pressa"] {
		t.Errorf("extended timeline prompt missing extra options, got %v", ids)
	}

	result = flow.Transition(models.StepQuoteBudget, models.QuoteAnswers{}, FlowInput{SelectionID: SelMoreOptions}, "")
	if result.NextStep != models.StepQuoteBudget {
		t.Errorf("more_options on budget advanced to %s", result.NextStep)
	}
}

func TestTransitionMainMenuFreeTextResendsMenu(t *testing.T) {
	flow := NewFlow()

	result := flow.Transition(models.StepMainMenu, models.QuoteAnswers{}, FlowInput{Text: "meu carro quebrou"}, "")
	if result.NextStep != models.StepMainMenu {
		t.Errorf("free text on main menu advanced to %s", result.NextStep)
	}
	if result.Reply == nil {
		t.Error("free text on main menu produced no reply")
	}
}

func TestTransitionHandoffFreezesUntilMenu(t *testing.T) {
	flow := NewFlow()

	// Entering handoff
	result := flow.Transition(models.StepMainMenu, models.QuoteAnswers{}, FlowInput{SelectionID: SelTalkHuman}, "")
	if result.NextStep != models.StepHumanHandoff {
		t.Fatalf("talk_human landed on %s", result.NextStep)
	}
	if result.Status != models.ConversationHandedOff {
		t.Errorf("handoff status = %q, want %q", result.Status, models.ConversationHandedOff)
	}

	// While a human owns the conversation, the bot stays silent
	frozen := flow.Transition(models.StepHumanHandoff, models.QuoteAnswers{}, FlowInput{Text: "o câmbio está patinando"}, "")
	if frozen.NextStep != models.StepHumanHandoff {
		t.Errorf("free text during handoff moved to %s", frozen.NextStep)
	}
	if frozen.Reply != nil {
		t.Errorf("bot replied during handoff: %s", frozen.Reply.PlainText())
	}

	// Typing menu resumes the bot
	resumed := flow.Transition(models.StepHumanHandoff, models.QuoteAnswers{}, FlowInput{Text: "menu"}, "")
	if resumed.NextStep != models.StepMainMenu {
		t.Errorf("menu during handoff landed on %s", resumed.NextStep)
	}
	if resumed.Status != models.ConversationActive {
		t.Errorf("resume status = %q, want %q", resumed.Status, models.ConversationActive)
	}
	if resumed.Reply == nil {
		t.Error("resume produced no menu")
	}
}

func TestTransitionPhotosAnyInputAdvances(t *testing.T) {
	flow := NewFlow()

	result := flow.Transition(models.StepQuotePhotos, models.QuoteAnswers{}, FlowInput{Text: "segue a foto do painel"}, "")
	if result.NextStep != models.StepQuoteContact {
		t.Errorf("photo caption landed on %s, want %s", result.NextStep, models.StepQuoteContact)
	}
	if result.Answers.PhotosNote != SelPhotosSent {
		t.Errorf("photo caption recorded note %q, want %q", result.Answers.PhotosNote, SelPhotosSent)
	}
}

func TestTransitionConfirmBackToMenu(t *testing.T) {
	flow := NewFlow()
	answers := models.QuoteAnswers{
		ServiceType: "revisao",
		Timeline:    "este_mes",
		Budget:      "15k_30k",
		PhotosNote:  SelPhotosSent,
		Contact:     "Maria, (21) 98888-7777",
	}

	result := flow.Transition(models.StepQuoteConfirm, answers, FlowInput{SelectionID: SelBackToMenu}, "")
	if result.NextStep != models.StepMainMenu {
		t.Errorf("back_to_menu from confirm landed on %s", result.NextStep)
	}

	// Any other input re-renders the summary in place
	again := flow.Transition(models.StepQuoteConfirm, answers, FlowInput{Text: "obrigado"}, "")
	if again.NextStep != models.StepQuoteConfirm {
		t.Errorf("stray text on confirm moved to %s", again.NextStep)
	}
	if again.Reply == nil {
		t.Error("confirm re-render produced no reply")
	}
}

func TestTransitionUnknownStepResetsToMenu(t *testing.T) {
	flow := NewFlow()

	result := flow.Transition(models.ConversationStep("GONE_STEP"), models.QuoteAnswers{}, FlowInput{Text: "oi"}, "")
	if result.NextStep != models.StepMainMenu {
		t.Errorf("unknown step landed on %s, want %s", result.NextStep, models.StepMainMenu)
	}
	if result.Reply == nil {
		t.Error("unknown step recovery produced no reply")
	}
}
