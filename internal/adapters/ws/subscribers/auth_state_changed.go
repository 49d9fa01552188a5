package subscribers

import (
	"mates/internal/adapters/ws"
	"mates/internal/domain"
)

type AuthStateChanged struct {
	hub *ws.Hub
}

func NewAuthStateChanged(hub *ws.Hub) *AuthStateChanged {
	return &AuthStateChanged{hub: hub}
}

func (s *AuthStateChanged) Handle(event any) {
	evt, ok := event.(domain.EventAuthStateChanged)
	if !ok {
		return
	}

	s.hub.Broadcast(&domain.WsServerEvent{
		Channel: domain.WsChannelAuthState,
		Event:   domain.EventNameAuthStateChanged,
		Payload: evt,
	})
}
