package domain

import (
	"encoding/json"
)

const (
	WsChannelNavigation = "navigation"
	WsChannelAlerts     = "alerts"
	WsChannelAuthState  = "auth_state"
	WsChannelLinks      = "links"
)

type WsClientMessage struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type WsServerEvent struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}
