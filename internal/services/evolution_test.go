package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEvolutionServiceGlobalAccessor(t *testing.T) {
	prev := GetEvolutionService()
	defer SetEvolutionService(prev)

	es := &EvolutionService{baseURL: "http://gateway.local", apiKey: "key"}
	SetEvolutionService(es)
	if GetEvolutionService() != es {
		t.Error("global accessor did not return the registered client")
	}
}

func TestDoRequestNormalizesGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "key" {
			t.Errorf("missing apikey header")
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "instance already exists"}`))
	}))
	defer server.Close()

	es := &EvolutionService{
		baseURL: server.URL,
		apiKey:  "key",
		client:  &http.Client{Timeout: 5 * time.Second},
	}

	resp, err := es.doRequest(http.MethodPost, "/instance/create", map[string]string{"instanceName": "rgtransmissoes"})
	if err != nil {
		t.Fatalf("non-2xx must not be a transport error: %v", err)
	}
	if resp.Success {
		t.Error("rejection reported Success=true")
	}
	if resp.Error == "" {
		t.Error("rejection carried no error detail")
	}
}

func TestDoRequestSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state": "open"}`))
	}))
	defer server.Close()

	es := &EvolutionService{
		baseURL: server.URL,
		apiKey:  "key",
		client:  &http.Client{Timeout: 5 * time.Second},
	}

	resp, err := es.doRequest(http.MethodGet, "/instance/connectionState/rgtransmissoes", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("2xx reported Success=false: %s", resp.Error)
	}
	if string(resp.Data) != `{"state": "open"}` {
		t.Errorf("unexpected data: %s", resp.Data)
	}
}
