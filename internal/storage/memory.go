package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

// MemoryStore holds all data in memory, for local development and tests
type MemoryStore struct {
	mu sync.RWMutex

	conversations map[uint]*models.Conversation
	byPhone       map[string]uint
	messages      map[uint]*models.Message
	byProviderID  map[string]uint
	states        map[uint]*models.ConversationState // keyed by conversation ID
	configs       map[string]*models.BotConfig

	conversationCounter uint
	messageCounter      uint
	stateCounter        uint
	configCounter       uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uint]*models.Conversation),
		byPhone:       make(map[string]uint),
		messages:      make(map[uint]*models.Message),
		byProviderID:  make(map[string]uint),
		states:        make(map[uint]*models.ConversationState),
		configs:       make(map[string]*models.BotConfig),
	}
}

func (m *MemoryStore) FindOrCreateConversation(phoneNumber, displayNameHint string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPhone[phoneNumber]; ok {
		conv := m.conversations[id]
		if conv.CustomerName == nil && displayNameHint != "" {
			name := displayNameHint
			conv.CustomerName = &name
		}
		c := *conv
		return &c, nil
	}

	m.conversationCounter++
	conv := &models.Conversation{
		PhoneNumber:   phoneNumber,
		Status:        models.ConversationActive,
		LastMessageAt: time.Now(),
	}
	conv.ID = m.conversationCounter
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = time.Now()
	if displayNameHint != "" {
		name := displayNameHint
		conv.CustomerName = &name
	}

	m.conversations[conv.ID] = conv
	m.byPhone[phoneNumber] = conv.ID
	c := *conv
	return &c, nil
}

func (m *MemoryStore) GetConversationByPhone(phoneNumber string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPhone[phoneNumber]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m.conversations[id]
	return &c, nil
}

func (m *MemoryStore) GetConversation(id uint) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *conv
	return &c, nil
}

func (m *MemoryStore) ListConversations(limit int) ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	convs := make([]*models.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		c := *conv
		convs = append(convs, &c)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (m *MemoryStore) UpdateConversationStatus(conversationID uint, status models.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Status = status
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) AppendMessage(conversationID uint, direction models.MessageDirection, content, providerMessageID string, timestamp time.Time) (*models.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byProviderID[providerMessageID]; ok {
		msg := *m.messages[id]
		return &msg, false, nil
	}

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, false, ErrNotFound
	}

	m.messageCounter++
	msg := &models.Message{
		ID:                m.messageCounter,
		ConversationID:    conversationID,
		Direction:         direction,
		Content:           content,
		ProviderMessageID: providerMessageID,
		CreatedAt:         timestamp,
	}
	m.messages[msg.ID] = msg
	m.byProviderID[providerMessageID] = msg.ID

	if timestamp.After(conv.LastMessageAt) {
		conv.LastMessageAt = timestamp
	}

	out := *msg
	return &out, true, nil
}

func (m *MemoryStore) ListMessages(conversationID uint) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var msgs []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out := *msg
			msgs = append(msgs, &out)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (m *MemoryStore) GetOrInitState(conversationID uint) (*models.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[conversationID]; ok {
		s := *state
		return &s, nil
	}

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}

	m.stateCounter++
	state := &models.ConversationState{
		ConversationID: conversationID,
		CurrentStep:    models.StepWelcome,
	}
	state.ID = m.stateCounter
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()
	m.states[conversationID] = state
	s := *state
	return &s, nil
}

func (m *MemoryStore) CommitTransition(conversationID uint, expectedVersion int, nextStep models.ConversationStep, answers models.QuoteAnswers) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[conversationID]
	if !ok {
		return ErrNotFound
	}
	if state.Version != expectedVersion {
		return ErrStateConflict
	}

	state.CurrentStep = nextStep
	state.Answers = answers
	state.Version++
	state.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) GetActiveBotConfig() (*models.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, config := range m.configs {
		if config.IsActive {
			c := *config
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ActivateBotConfig(config *models.BotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.configs {
		existing.IsActive = false
	}

	if existing, ok := m.configs[config.InstanceID]; ok {
		existing.InstanceToken = config.InstanceToken
		existing.WebhookURL = config.WebhookURL
		existing.IsActive = true
		existing.UpdatedAt = time.Now()
		*config = *existing
		return nil
	}

	m.configCounter++
	config.ID = m.configCounter
	config.CreatedAt = time.Now()
	config.UpdatedAt = time.Now()
	config.IsActive = true
	stored := *config
	m.configs[config.InstanceID] = &stored
	return nil
}

func (m *MemoryStore) DeactivateBotConfig(instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config, ok := m.configs[instanceID]; ok {
		config.IsActive = false
		config.UpdatedAt = time.Now()
	}
	return nil
}
