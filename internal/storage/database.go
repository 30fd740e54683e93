package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

// DatabaseStore persists conversations in PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// FindOrCreateConversation looks a conversation up by phone number and
// creates it on miss. The display name hint is only applied when no name
// is stored yet (first-seen-wins).
func (s *DatabaseStore) FindOrCreateConversation(phoneNumber, displayNameHint string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("phone_number = ?", phoneNumber).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conv = models.Conversation{
			PhoneNumber:   phoneNumber,
			Status:        models.ConversationActive,
			LastMessageAt: time.Now(),
		}
		if displayNameHint != "" {
			conv.CustomerName = &displayNameHint
		}
		if err := s.db.Create(&conv).Error; err != nil {
			return nil, err
		}
		return &conv, nil
	}
	if err != nil {
		return nil, err
	}

	if conv.CustomerName == nil && displayNameHint != "" {
		if err := s.db.Model(&conv).Update("customer_name", displayNameHint).Error; err != nil {
			return nil, err
		}
		conv.CustomerName = &displayNameHint
	}
	return &conv, nil
}

func (s *DatabaseStore) GetConversationByPhone(phoneNumber string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("phone_number = ?", phoneNumber).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *DatabaseStore) GetConversation(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *DatabaseStore) ListConversations(limit int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var convs []*models.Conversation
	err := s.db.Order("last_message_at DESC").Limit(limit).Find(&convs).Error
	return convs, err
}

func (s *DatabaseStore) UpdateConversationStatus(conversationID uint, status models.ConversationStatus) error {
	return s.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("status", status).Error
}

// AppendMessage inserts a message unless one with the same provider id
// already exists, and bumps the conversation's LastMessageAt. The dup
// check and insert run in one transaction so a retried webhook delivery
// can't slip a second row in.
func (s *DatabaseStore) AppendMessage(conversationID uint, direction models.MessageDirection, content, providerMessageID string, timestamp time.Time) (*models.Message, bool, error) {
	var msg models.Message
	created := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider_message_id = ?", providerMessageID).First(&msg).Error
		if err == nil {
			return nil // duplicate delivery, keep the original row
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		msg = models.Message{
			ConversationID:    conversationID,
			Direction:         direction,
			Content:           content,
			ProviderMessageID: providerMessageID,
			CreatedAt:         timestamp,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		created = true

		// LastMessageAt only moves forward, so a late redelivery of an
		// old message can't rewind it.
		return tx.Model(&models.Conversation{}).
			Where("id = ? AND last_message_at < ?", conversationID, timestamp).
			Update("last_message_at", timestamp).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &msg, created, nil
}

func (s *DatabaseStore) ListMessages(conversationID uint) ([]*models.Message, error) {
	var msgs []*models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// GetOrInitState returns the conversation's state row, creating it at
// WELCOME with empty answers on first use.
func (s *DatabaseStore) GetOrInitState(conversationID uint) (*models.ConversationState, error) {
	var state models.ConversationState
	err := s.db.Where("conversation_id = ?", conversationID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.ConversationState{
			ConversationID: conversationID,
			CurrentStep:    models.StepWelcome,
		}
		if err := s.db.Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// CommitTransition updates the state row with a compare-and-swap on the
// version column. RowsAffected == 0 means a concurrent request got there
// first; the caller re-reads and retries once.
// The update must go through a struct, not a map, so GORM runs the json
// serializer on answers; Select forces zero-valued fields to be written.
func (s *DatabaseStore) CommitTransition(conversationID uint, expectedVersion int, nextStep models.ConversationStep, answers models.QuoteAnswers) error {
	result := s.db.Model(&models.ConversationState{}).
		Where("conversation_id = ? AND version = ?", conversationID, expectedVersion).
		Select("current_step", "answers", "version").
		Updates(models.ConversationState{
			CurrentStep: nextStep,
			Answers:     answers,
			Version:     expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *DatabaseStore) GetActiveBotConfig() (*models.BotConfig, error) {
	var config models.BotConfig
	err := s.db.Where("is_active = ?", true).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// ActivateBotConfig deactivates any currently active configuration and
// activates the given one as a single transaction, so there is never a
// moment with two active rows.
func (s *DatabaseStore) ActivateBotConfig(config *models.BotConfig) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BotConfig{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		var existing models.BotConfig
		err := tx.Where("instance_id = ?", config.InstanceID).First(&existing).Error
		if err == nil {
			existing.InstanceToken = config.InstanceToken
			existing.WebhookURL = config.WebhookURL
			existing.IsActive = true
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*config = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		config.IsActive = true
		return tx.Create(config).Error
	})
}

func (s *DatabaseStore) DeactivateBotConfig(instanceID string) error {
	return s.db.Model(&models.BotConfig{}).
		Where("instance_id = ?", instanceID).
		Update("is_active", false).Error
}
