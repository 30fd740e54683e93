package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

// Dispatcher turns a rendered template into the right gateway call and
// records the result as an outbound message. Sends are at-most-once:
// the state transition is already committed, so a failed send is logged
// and never retried (a retried stale prompt could desync an already
// advanced conversation).
type Dispatcher struct {
	store   storage.Store
	gateway GatewaySender
}

// NewDispatcher creates a new outbound dispatcher
func NewDispatcher(store storage.Store, gateway GatewaySender) *Dispatcher {
	return &Dispatcher{store: store, gateway: gateway}
}

// Send delivers one template to the customer and logs it as an OUTBOUND
// message on success.
func (d *Dispatcher) Send(instanceID string, conversationID uint, phoneNumber string, template Template) {
	if d.gateway == nil {
		log.Printf("📤 Outbound to %s (gateway not configured): %s", phoneNumber, template.PlainText())
		return
	}

	// Typing indicator is cosmetic, failures don't matter
	if err := d.gateway.SendPresence(instanceID, phoneNumber, true); err != nil {
		log.Printf("Typing indicator failed for %s: %v", phoneNumber, err)
	}

	var err error
	switch t := template.(type) {
	case TextTemplate:
		err = d.gateway.SendTextMessage(instanceID, phoneNumber, t.Body)
	case ButtonTemplate:
		err = d.gateway.SendButtonsMessage(instanceID, phoneNumber, t)
	case ListTemplate:
		err = d.gateway.SendListMessage(instanceID, phoneNumber, t)
	default:
		log.Printf("❌ Unknown template type %T for %s", template, phoneNumber)
		return
	}

	if err != nil {
		log.Printf("❌ Failed to send message to %s: %v", phoneNumber, err)
		return
	}

	_, _, err = d.store.AppendMessage(
		conversationID,
		models.MessageOutbound,
		template.PlainText(),
		"out-"+uuid.NewString(),
		time.Now(),
	)
	if err != nil {
		log.Printf("❌ Failed to record outbound message for %s: %v", phoneNumber, err)
	}
}
