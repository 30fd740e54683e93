package models

import (
	"time"

	"gorm.io/gorm"
)

// ConversationStatus tracks who owns a conversation: the bot, nobody
// (quote finished) or a human operator.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "ACTIVE"
	ConversationCompleted ConversationStatus = "COMPLETED"
	ConversationHandedOff ConversationStatus = "HANDED_OFF"
)

// MessageDirection marks a message as received from or sent to the customer.
type MessageDirection string

const (
	MessageInbound  MessageDirection = "INBOUND"
	MessageOutbound MessageDirection = "OUTBOUND"
)

// ConversationStep is the persisted cursor of the guided-quote flow.
type ConversationStep string

const (
	StepWelcome          ConversationStep = "WELCOME"
	StepMainMenu         ConversationStep = "MAIN_MENU"
	StepQuoteServiceType ConversationStep = "QUOTE_PROJECT_TYPE"
	StepQuoteTimeline    ConversationStep = "QUOTE_TIMELINE"
	StepQuoteBudget      ConversationStep = "QUOTE_BUDGET"
	StepQuotePhotos      ConversationStep = "QUOTE_PHOTOS"
	StepQuoteContact     ConversationStep = "QUOTE_CONTACT"
	StepQuoteConfirm     ConversationStep = "QUOTE_CONFIRM"
	StepServiceInfo      ConversationStep = "SERVICE_INFO"
	StepPortfolio        ConversationStep = "PORTFOLIO"
	StepFAQ              ConversationStep = "FAQ"
	StepHumanHandoff     ConversationStep = "HUMAN_HANDOFF"
)

// Conversation is the root entity for one WhatsApp contact, keyed by
// phone number. Messages and state are owned by it and removed with it.
type Conversation struct {
	gorm.Model
	PhoneNumber   string             `json:"phone_number" gorm:"uniqueIndex"`
	CustomerName  *string            `json:"customer_name"`
	Status        ConversationStatus `json:"status" gorm:"default:ACTIVE"`
	LastMessageAt time.Time          `json:"last_message_at"`

	Messages []Message          `json:"messages,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	State    *ConversationState `json:"state,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Message is one append-only entry in a conversation's log. CreatedAt
// carries the provider's event timestamp, not arrival time, so ordering
// survives batched redelivery.
type Message struct {
	ID                uint             `json:"id" gorm:"primarykey"`
	ConversationID    uint             `json:"conversation_id" gorm:"index"`
	Direction         MessageDirection `json:"direction"`
	Content           string           `json:"content"`
	ProviderMessageID string           `json:"provider_message_id" gorm:"uniqueIndex"`
	CreatedAt         time.Time        `json:"created_at"`
}

// QuoteAnswers accumulates what the customer picked across the quote
// steps. Fixed fields rather than a free-form map, so the confirmation
// summary can't be asked to render a key that doesn't exist.
type QuoteAnswers struct {
	ServiceType string `json:"service_type,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
	Budget      string `json:"budget,omitempty"`
	PhotosNote  string `json:"photos_note,omitempty"`
	Contact     string `json:"contact,omitempty"`
}

// ConversationState is the single mutable cursor per conversation
// (messages are history, state is position). Version is bumped on every
// transition and checked on update to catch concurrent webhook deliveries.
type ConversationState struct {
	gorm.Model
	ConversationID uint             `json:"conversation_id" gorm:"uniqueIndex"`
	CurrentStep    ConversationStep `json:"current_step" gorm:"default:WELCOME"`
	Answers        QuoteAnswers     `json:"answers" gorm:"serializer:json"`
	Version        int              `json:"version"`
}
