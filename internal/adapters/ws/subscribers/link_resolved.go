package subscribers

import (
	"mates/internal/adapters/ws"
	"mates/internal/domain"
)

type LinkResolved struct {
	hub *ws.Hub
}

func NewLinkResolved(hub *ws.Hub) *LinkResolved {
	return &LinkResolved{hub: hub}
}

func (s *LinkResolved) Handle(event any) {
	evt, ok := event.(domain.EventLinkResolved)
	if !ok {
		return
	}

	s.hub.Broadcast(&domain.WsServerEvent{
		Channel: domain.WsChannelLinks,
		Event:   domain.EventNameLinkResolved,
		Payload: evt.Redacted(),
	})
}
