package magiclink

import (
	"context"
	"time"

	"mates/internal/domain"
	"mates/internal/event"
)

// BusPresenter hands navigation intents and alerts to whoever renders the UI.
type BusPresenter struct {
	bus *event.Bus
}

func NewBusPresenter(bus *event.Bus) *BusPresenter {
	return &BusPresenter{bus: bus}
}

func (p *BusPresenter) Navigate(_ context.Context, route domain.Route) {
	p.bus.Publish(domain.EventNameNavigationRequested, domain.EventNavigationRequested{
		Route: route,
		At:    time.Now(),
	})
}

func (p *BusPresenter) Alert(_ context.Context, alert domain.Alert) {
	p.bus.Publish(domain.EventNameAlertRaised, domain.EventAlertRaised{
		Alert: alert,
		At:    time.Now(),
	})
}
