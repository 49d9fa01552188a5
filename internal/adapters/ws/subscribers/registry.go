// Package subscribers forwards application events to websocket channels.
package subscribers

import (
	"mates/internal/adapters/ws"
	"mates/internal/domain"
	"mates/internal/event"
)

type EventBus interface {
	Subscribe(eventName string, handler event.Handler)
}

func Register(bus EventBus, hub *ws.Hub) {
	// UI effects
	navigationRequested := NewNavigationRequested(hub)
	alertRaised := NewAlertRaised(hub)

	bus.Subscribe(domain.EventNameNavigationRequested, navigationRequested.Handle)
	bus.Subscribe(domain.EventNameAlertRaised, alertRaised.Handle)

	// Auth state
	authStateChanged := NewAuthStateChanged(hub)

	bus.Subscribe(domain.EventNameAuthStateChanged, authStateChanged.Handle)

	// Resolver runs
	linkResolved := NewLinkResolved(hub)

	bus.Subscribe(domain.EventNameLinkResolved, linkResolved.Handle)
}
