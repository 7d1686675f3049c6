package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

// Notifier delivers an event to a user through whatever channel is available.
type Notifier interface {
	Notify(userID string, ev Event) error
}

// PushDispatcher tries the websocket session first and falls back to posting
// the event to an external push endpoint for clients that are not connected.
type PushDispatcher struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushDispatcher(endpoint string, ws *WSRegistry) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushDispatcher) Notify(userID string, ev Event) error {
	if p.WS != nil {
		if err := p.WS.Notify(userID, ev); err == nil {
			return nil
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	b, _ := json.Marshal(map[string]any{"user_id": userID, "event": ev})
	_, err := p.Client.Post(p.Endpoint, "application/json", bytes.NewReader(b))
	return err
}
