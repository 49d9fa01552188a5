package subscribers

import (
	"mates/internal/adapters/ws"
	"mates/internal/domain"
)

type NavigationRequested struct {
	hub *ws.Hub
}

func NewNavigationRequested(hub *ws.Hub) *NavigationRequested {
	return &NavigationRequested{hub: hub}
}

func (s *NavigationRequested) Handle(event any) {
	evt, ok := event.(domain.EventNavigationRequested)
	if !ok {
		return
	}

	s.hub.Broadcast(&domain.WsServerEvent{
		Channel: domain.WsChannelNavigation,
		Event:   domain.EventNameNavigationRequested,
		Payload: evt,
	})
}
