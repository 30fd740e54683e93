package services

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

const groupJIDSuffix = "@g.us"

// WebhookEnvelope is the provider's event wrapper
type WebhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// upsertPayload covers both shapes the gateway delivers for
// messages.upsert: a batch under "messages" or a single bare message.
type upsertPayload struct {
	Messages []eventMessage `json:"messages"`
}

type eventMessage struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName         string      `json:"pushName"`
	MessageTimestamp int64       `json:"messageTimestamp"`
	Message          messageBody `json:"message"`
}

// messageBody lists the payload shapes we can extract text from. Plain
// text arrives as either conversation or extendedTextMessage; taps on
// interactive options arrive as button/list responses; media may carry a
// caption.
type messageBody struct {
	Conversation        string `json:"conversation"`
	ExtendedTextMessage *struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage"`
	ButtonsResponseMessage *struct {
		SelectedButtonID    string `json:"selectedButtonId"`
		SelectedDisplayText string `json:"selectedDisplayText"`
	} `json:"buttonsResponseMessage"`
	ListResponseMessage *struct {
		Title             string `json:"title"`
		SingleSelectReply struct {
			SelectedRowID string `json:"selectedRowId"`
		} `json:"singleSelectReply"`
	} `json:"listResponseMessage"`
	ImageMessage *struct {
		Caption string `json:"caption"`
	} `json:"imageMessage"`
	VideoMessage *struct {
		Caption string `json:"caption"`
	} `json:"videoMessage"`
}

type connectionUpdate struct {
	Instance string `json:"instance"`
	State    string `json:"state"`
}

// WhatsAppService ingests provider webhook events and drives the
// conversation state machine.
type WhatsAppService struct {
	store      storage.Store
	flow       *Flow
	dispatcher *Dispatcher

	// Per-phone locks serialize transitions for one conversation while
	// leaving unrelated conversations concurrent. The store's version
	// check covers the multi-process case.
	locks sync.Map
}

// NewWhatsAppService creates a new webhook ingestion service
func NewWhatsAppService(store storage.Store, flow *Flow, dispatcher *Dispatcher) *WhatsAppService {
	return &WhatsAppService{
		store:      store,
		flow:       flow,
		dispatcher: dispatcher,
	}
}

// HandleEvent processes one webhook envelope. It never returns an
// error: every internal failure is logged and swallowed so the webhook
// endpoint can always acknowledge the provider.
func (w *WhatsAppService) HandleEvent(instanceID string, envelope WebhookEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while processing %s event: %v", envelope.Event, r)
		}
	}()

	switch envelope.Event {
	case "messages.upsert":
		w.handleMessagesUpsert(instanceID, envelope.Data)

	case "connection.update":
		var update connectionUpdate
		if err := json.Unmarshal(envelope.Data, &update); err != nil {
			log.Printf("⚠️ Malformed connection.update payload: %v", err)
			return
		}
		log.Printf("🔌 Connection state for %s: %s", instanceID, update.State)

	case "send.message":
		// Echo of our own outbound send, already recorded by the dispatcher
		log.Printf("📤 send.message echo for %s", instanceID)

	default:
		log.Printf("ℹ️ Ignoring unrecognized event type: %s", envelope.Event)
	}
}

// handleMessagesUpsert iterates the batch; one bad message never aborts
// its siblings.
func (w *WhatsAppService) handleMessagesUpsert(instanceID string, data json.RawMessage) {
	var payload upsertPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Messages) == 0 {
		var single eventMessage
		if err := json.Unmarshal(data, &single); err != nil {
			log.Printf("⚠️ Malformed messages.upsert payload: %v", err)
			return
		}
		if single.Key.RemoteJID == "" {
			log.Printf("⚠️ messages.upsert without a remote JID, skipping")
			return
		}
		payload.Messages = []eventMessage{single}
	}

	for _, msg := range payload.Messages {
		w.processInbound(instanceID, msg)
	}
}

func (w *WhatsAppService) processInbound(instanceID string, msg eventMessage) {
	// Echo suppression: never reply to our own replies
	if msg.Key.FromMe {
		return
	}

	// 1:1 conversations only
	if strings.HasSuffix(msg.Key.RemoteJID, groupJIDSuffix) {
		log.Printf("👥 Ignoring group message from %s", msg.Key.RemoteJID)
		return
	}

	input, ok := extractInput(msg.Message)
	if !ok {
		log.Printf("🖼️ No extractable text in message %s from %s, skipping", msg.Key.ID, msg.Key.RemoteJID)
		return
	}

	phone := normalizePhone(msg.Key.RemoteJID)
	if phone == "" {
		log.Printf("⚠️ Could not extract phone number from JID %s", msg.Key.RemoteJID)
		return
	}

	timestamp := time.Unix(msg.MessageTimestamp, 0)
	if msg.MessageTimestamp == 0 {
		timestamp = time.Now()
	}

	// Serialize all work for this phone number
	mu := w.lockFor(phone)
	mu.Lock()
	defer mu.Unlock()

	conv, err := w.store.FindOrCreateConversation(phone, msg.PushName)
	if err != nil {
		log.Printf("❌ Failed to find/create conversation for %s: %v", phone, err)
		return
	}

	content := input.Text
	if content == "" {
		content = input.SelectionID
	}
	_, created, err := w.store.AppendMessage(conv.ID, models.MessageInbound, content, msg.Key.ID, timestamp)
	if err != nil {
		log.Printf("❌ Failed to append message %s: %v", msg.Key.ID, err)
		return
	}
	if !created {
		// Duplicate webhook delivery: the first one already advanced the
		// state machine, this one must not advance it again.
		log.Printf("🔁 Duplicate delivery of message %s, skipping", msg.Key.ID)
		return
	}

	w.advance(instanceID, conv, input)
}

// advance runs one state-machine transition and commits it before any
// send attempt, retrying the read-modify-write once on a version
// conflict.
func (w *WhatsAppService) advance(instanceID string, conv *models.Conversation, input FlowInput) {
	name := ""
	if conv.CustomerName != nil {
		name = *conv.CustomerName
	}

	for attempt := 0; attempt < 2; attempt++ {
		state, err := w.store.GetOrInitState(conv.ID)
		if err != nil {
			log.Printf("❌ Failed to load state for conversation %d: %v", conv.ID, err)
			return
		}

		result := w.flow.Transition(state.CurrentStep, state.Answers, input, name)

		if result.Changed(state.CurrentStep, state.Answers) {
			err = w.store.CommitTransition(conv.ID, state.Version, result.NextStep, result.Answers)
			if err == storage.ErrStateConflict {
				if attempt == 0 {
					log.Printf("🔄 State conflict for conversation %d, retrying transition", conv.ID)
					continue
				}
				// Safe no-op: acknowledge without a state change rather
				// than corrupt the cursor.
				log.Printf("⚠️ Persistent state conflict for conversation %d, dropping transition", conv.ID)
				return
			}
			if err != nil {
				log.Printf("❌ Failed to commit transition for conversation %d: %v", conv.ID, err)
				return
			}
		}

		if result.Status != "" && result.Status != conv.Status {
			if err := w.store.UpdateConversationStatus(conv.ID, result.Status); err != nil {
				log.Printf("❌ Failed to update status for conversation %d: %v", conv.ID, err)
			}
		}

		if result.Reply != nil {
			w.dispatcher.Send(instanceID, conv.ID, conv.PhoneNumber, result.Reply)
		}
		return
	}
}

func (w *WhatsAppService) lockFor(phone string) *sync.Mutex {
	mu, _ := w.locks.LoadOrStore(phone, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// extractInput pulls text or a selection id out of the payload shapes we
// understand. Media without a caption yields ok=false.
func extractInput(body messageBody) (FlowInput, bool) {
	switch {
	case body.Conversation != "":
		return FlowInput{Text: body.Conversation}, true
	case body.ExtendedTextMessage != nil && body.ExtendedTextMessage.Text != "":
		return FlowInput{Text: body.ExtendedTextMessage.Text}, true
	case body.ButtonsResponseMessage != nil && body.ButtonsResponseMessage.SelectedButtonID != "":
		return FlowInput{
			Text:        body.ButtonsResponseMessage.SelectedDisplayText,
			SelectionID: body.ButtonsResponseMessage.SelectedButtonID,
		}, true
	case body.ListResponseMessage != nil && body.ListResponseMessage.SingleSelectReply.SelectedRowID != "":
		return FlowInput{
			Text:        body.ListResponseMessage.Title,
			SelectionID: body.ListResponseMessage.SingleSelectReply.SelectedRowID,
		}, true
	case body.ImageMessage != nil && body.ImageMessage.Caption != "":
		return FlowInput{Text: body.ImageMessage.Caption}, true
	case body.VideoMessage != nil && body.VideoMessage.Caption != "":
		return FlowInput{Text: body.VideoMessage.Caption}, true
	default:
		return FlowInput{}, false
	}
}

// normalizePhone strips the provider's JID suffix and keeps digits only
func normalizePhone(jid string) string {
	if at := strings.Index(jid, "@"); at >= 0 {
		jid = jid[:at]
	}
	var b strings.Builder
	for _, r := range jid {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
