package subscribers

import (
	"mates/internal/adapters/ws"
	"mates/internal/domain"
)

type AlertRaised struct {
	hub *ws.Hub
}

func NewAlertRaised(hub *ws.Hub) *AlertRaised {
	return &AlertRaised{hub: hub}
}

func (s *AlertRaised) Handle(event any) {
	evt, ok := event.(domain.EventAlertRaised)
	if !ok {
		return
	}

	s.hub.Broadcast(&domain.WsServerEvent{
		Channel: domain.WsChannelAlerts,
		Event:   domain.EventNameAlertRaised,
		Payload: evt,
	})
}
