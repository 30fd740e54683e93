package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

var (
	evolutionServiceInstance *EvolutionService
	evolutionServiceMu       sync.Mutex
)

// SetEvolutionService sets the global gateway client instance
func SetEvolutionService(es *EvolutionService) {
	evolutionServiceMu.Lock()
	defer evolutionServiceMu.Unlock()
	evolutionServiceInstance = es
}

// GetEvolutionService returns the global gateway client instance
func GetEvolutionService() *EvolutionService {
	evolutionServiceMu.Lock()
	defer evolutionServiceMu.Unlock()
	return evolutionServiceInstance
}

// GatewayResponse is the normalized result of a gateway call
type GatewayResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GatewaySender is the narrow surface the outbound dispatcher needs.
// The full EvolutionService implements it; tests substitute a fake.
type GatewaySender interface {
	SendTextMessage(instanceID, number, text string) error
	SendButtonsMessage(instanceID, number string, template ButtonTemplate) error
	SendListMessage(instanceID, number string, template ListTemplate) error
	SendPresence(instanceID, number string, typing bool) error
}

// EvolutionService wraps the Evolution API HTTP surface: instance
// lifecycle, connection state and outbound sends.
type EvolutionService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewEvolutionService creates a new Evolution API client from environment variables
func NewEvolutionService() (*EvolutionService, error) {
	baseURL := os.Getenv("EVOLUTION_API_URL")
	apiKey := os.Getenv("EVOLUTION_API_KEY")

	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("missing Evolution API credentials in environment variables")
	}

	return &EvolutionService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// doRequest performs one gateway call and normalizes the outcome.
// Non-2xx responses come back as Success=false, not as a Go error, so
// callers can distinguish transport failures from gateway rejections.
func (e *EvolutionService) doRequest(method, path string, body interface{}) (*GatewayResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayResponse{
			Success: false,
			Error:   fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, string(data)),
		}, nil
	}

	return &GatewayResponse{Success: true, Data: data}, nil
}

// CreateInstance registers a new gateway instance and points its webhook
// at this backend.
func (e *EvolutionService) CreateInstance(instanceName, token, webhookURL string) (*GatewayResponse, error) {
	payload := map[string]interface{}{
		"instanceName": instanceName,
		"token":        token,
		"qrcode":       true,
		"webhook":      webhookURL,
		"webhook_by_events": false,
		"events": []string{
			"MESSAGES_UPSERT",
			"CONNECTION_UPDATE",
			"SEND_MESSAGE",
		},
	}
	return e.doRequest(http.MethodPost, "/instance/create", payload)
}

// ConnectInstance starts the pairing process and returns QR code data
func (e *EvolutionService) ConnectInstance(instanceName string) (*GatewayResponse, error) {
	return e.doRequest(http.MethodGet, "/instance/connect/"+instanceName, nil)
}

// GetConnectionState returns the live session state for an instance
func (e *EvolutionService) GetConnectionState(instanceName string) (*GatewayResponse, error) {
	return e.doRequest(http.MethodGet, "/instance/connectionState/"+instanceName, nil)
}

// LogoutInstance disconnects the WhatsApp session without deleting the instance
func (e *EvolutionService) LogoutInstance(instanceName string) (*GatewayResponse, error) {
	return e.doRequest(http.MethodDelete, "/instance/logout/"+instanceName, nil)
}

// DeleteInstance removes the instance from the gateway
func (e *EvolutionService) DeleteInstance(instanceName string) (*GatewayResponse, error) {
	return e.doRequest(http.MethodDelete, "/instance/delete/"+instanceName, nil)
}

// SendTextMessage sends a plain text message
func (e *EvolutionService) SendTextMessage(instanceID, number, text string) error {
	payload := map[string]interface{}{
		"number": number,
		"options": map[string]interface{}{
			"delay":    1200,
			"presence": "composing",
		},
		"textMessage": map[string]string{
			"text": text,
		},
	}
	return e.checkSend(e.doRequest(http.MethodPost, "/message/sendText/"+instanceID, payload))
}

// SendButtonsMessage sends an interactive quick-reply button message
func (e *EvolutionService) SendButtonsMessage(instanceID, number string, template ButtonTemplate) error {
	buttons := make([]map[string]string, 0, len(template.Buttons))
	for _, b := range template.Buttons {
		buttons = append(buttons, map[string]string{
			"buttonId":   b.ID,
			"buttonText": b.Label,
		})
	}
	payload := map[string]interface{}{
		"number": number,
		"buttonMessage": map[string]interface{}{
			"title":       template.Title,
			"description": template.Body,
			"footerText":  template.Footer,
			"buttons":     buttons,
		},
	}
	return e.checkSend(e.doRequest(http.MethodPost, "/message/sendButtons/"+instanceID, payload))
}

// SendListMessage sends an interactive list message
func (e *EvolutionService) SendListMessage(instanceID, number string, template ListTemplate) error {
	sections := make([]map[string]interface{}, 0, len(template.Sections))
	for _, s := range template.Sections {
		rows := make([]map[string]string, 0, len(s.Rows))
		for _, r := range s.Rows {
			rows = append(rows, map[string]string{
				"rowId":       r.ID,
				"title":       r.Title,
				"description": r.Description,
			})
		}
		sections = append(sections, map[string]interface{}{
			"title": s.Title,
			"rows":  rows,
		})
	}
	payload := map[string]interface{}{
		"number": number,
		"listMessage": map[string]interface{}{
			"title":       template.Title,
			"description": template.Body,
			"buttonText":  template.ButtonLabel,
			"footerText":  template.Footer,
			"sections":    sections,
		},
	}
	return e.checkSend(e.doRequest(http.MethodPost, "/message/sendList/"+instanceID, payload))
}

// SendMediaMessage sends an image/video/document by URL with an optional caption
func (e *EvolutionService) SendMediaMessage(instanceID, number, mediaType, mediaURL, caption string) error {
	payload := map[string]interface{}{
		"number": number,
		"mediaMessage": map[string]string{
			"mediatype": mediaType,
			"media":     mediaURL,
			"caption":   caption,
		},
	}
	return e.checkSend(e.doRequest(http.MethodPost, "/message/sendMedia/"+instanceID, payload))
}

// SendPresence toggles the typing indicator for a chat
func (e *EvolutionService) SendPresence(instanceID, number string, typing bool) error {
	presence := "paused"
	if typing {
		presence = "composing"
	}
	payload := map[string]interface{}{
		"number":   number,
		"presence": presence,
	}
	return e.checkSend(e.doRequest(http.MethodPost, "/chat/sendPresence/"+instanceID, payload))
}

func (e *EvolutionService) checkSend(resp *GatewayResponse, err error) error {
	if err != nil {
		return err
	}
	if !resp.Success {
		log.Printf("❌ Gateway rejected send: %s", resp.Error)
		return fmt.Errorf("gateway send failed: %s", resp.Error)
	}
	return nil
}
