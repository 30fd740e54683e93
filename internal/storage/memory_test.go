package storage

import (
	"testing"
	"time"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

// The memory store must honor the same contract as the database store
// for the invariants the webhook path relies on.

func TestMemoryStoreAppendMessageIdempotent(t *testing.T) {
	store := NewMemoryStore()
	conv, _ := store.FindOrCreateConversation("5511999990000", "João")

	_, created, err := store.AppendMessage(conv.ID, models.MessageInbound, "oi", "MSG-1", time.Now())
	if err != nil || !created {
		t.Fatalf("first append: created=%t err=%v", created, err)
	}

	_, created, err = store.AppendMessage(conv.ID, models.MessageInbound, "oi", "MSG-1", time.Now())
	if err != nil {
		t.Fatalf("duplicate append failed: %v", err)
	}
	if created {
		t.Error("duplicate append reported created=true")
	}

	msgs, _ := store.ListMessages(conv.ID)
	if len(msgs) != 1 {
		t.Errorf("duplicate append stored %d rows", len(msgs))
	}
}

func TestMemoryStoreCommitTransitionConflict(t *testing.T) {
	store := NewMemoryStore()
	conv, _ := store.FindOrCreateConversation("5511999990000", "João")
	state, _ := store.GetOrInitState(conv.ID)

	if err := store.CommitTransition(conv.ID, state.Version, models.StepMainMenu, models.QuoteAnswers{}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := store.CommitTransition(conv.ID, state.Version, models.StepQuoteServiceType, models.QuoteAnswers{}); err != ErrStateConflict {
		t.Errorf("stale commit returned %v, want ErrStateConflict", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	conv, _ := store.FindOrCreateConversation("5511999990000", "João")

	// Mutating a returned row must not leak into the store
	conv.Status = models.ConversationHandedOff
	fresh, _ := store.GetConversation(conv.ID)
	if fresh.Status != models.ConversationActive {
		t.Errorf("caller mutation leaked into the store: %s", fresh.Status)
	}
}

func TestStoreGlobalAccessor(t *testing.T) {
	prev := GetStore()
	defer SetStore(prev)

	store := NewMemoryStore()
	SetStore(store)
	if GetStore() != Store(store) {
		t.Error("global accessor did not return the registered store")
	}
}

func TestMemoryStoreListConversationsMostRecentFirst(t *testing.T) {
	store := NewMemoryStore()

	a, _ := store.FindOrCreateConversation("5511999990000", "João")
	b, _ := store.FindOrCreateConversation("5521988887777", "Maria")

	store.AppendMessage(a.ID, models.MessageInbound, "oi", "MSG-A", time.Now().Add(time.Hour))
	store.AppendMessage(b.ID, models.MessageInbound, "oi", "MSG-B", time.Now())

	convs, err := store.ListConversations(10)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	if convs[0].ID != a.ID {
		t.Errorf("most recently active conversation not first: %d", convs[0].ID)
	}
}
