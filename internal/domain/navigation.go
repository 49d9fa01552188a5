package domain

import "context"

type Route string

const (
	RouteMain       Route = "/main"
	RouteOnboarding Route = "/onboarding/welcome"
)

type AlertKind string

const (
	AlertSuccess AlertKind = "success"
	AlertError   AlertKind = "error"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Presenter is the UI side of the resolver: navigation intents and user-facing alerts.
type Presenter interface {
	Navigate(ctx context.Context, route Route)
	Alert(ctx context.Context, alert Alert)
}
