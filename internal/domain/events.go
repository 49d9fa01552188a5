package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventNameNavigationRequested = "navigation_requested"
	EventNameAlertRaised         = "alert_raised"
	EventNameAuthStateChanged    = "auth_state_changed"
	EventNameLinkResolved        = "link_resolved"
)

type EventNavigationRequested struct {
	Route Route     `json:"route"`
	At    time.Time `json:"at"`
}

type EventAlertRaised struct {
	Alert Alert     `json:"alert"`
	At    time.Time `json:"at"`
}

type EventAuthStateChanged struct {
	State AuthState `json:"state"`
	At    time.Time `json:"at"`
}

type EventLinkResolved struct {
	RunID   uuid.UUID `json:"run_id"`
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// Redacted drops the signed-in identifier and the raw failure reason, for
// fan-out to clients that only need to know how a link ended.
func (e EventLinkResolved) Redacted() EventLinkResolved {
	e.Outcome.UserIdentifier = ""
	e.Outcome.Reason = ""
	return e
}
