package domain

type OutcomeKind string

const (
	OutcomeNotAuthRelated OutcomeKind = "not_auth_related"
	OutcomeAuthError      OutcomeKind = "auth_error"
	OutcomeAuthSuccess    OutcomeKind = "auth_success"
	OutcomeAuthFailure    OutcomeKind = "auth_failure"
)

type ResolutionState string

const (
	StateIdle          ResolutionState = "idle"
	StateClassifying   ResolutionState = "classifying"
	StateNotAuth       ResolutionState = "not_auth"
	StateErrorReported ResolutionState = "error_reported"
	StateExchanging    ResolutionState = "exchanging"
	StateSucceeded     ResolutionState = "succeeded"
	StateFailed        ResolutionState = "failed"
)

const (
	ReasonNoTokens  = "no tokens found"
	ReasonAbandoned = "resolution abandoned"
)

// Outcome is the single result of one resolver run. Kind selects which
// of the remaining fields are meaningful.
type Outcome struct {
	Kind  OutcomeKind     `json:"kind"`
	State ResolutionState `json:"state"`

	Code           string `json:"code,omitempty"`
	Description    string `json:"description,omitempty"`
	UserIdentifier string `json:"user_identifier,omitempty"`
	Reason         string `json:"reason,omitempty"`

	// Replayed marks an outcome served from the processed-link cache.
	Replayed bool `json:"replayed,omitempty"`
}

func NotAuthRelated() Outcome {
	return Outcome{Kind: OutcomeNotAuthRelated, State: StateNotAuth}
}

func AuthError(code, description string) Outcome {
	return Outcome{Kind: OutcomeAuthError, State: StateErrorReported, Code: code, Description: description}
}

func AuthSuccess(userIdentifier string) Outcome {
	return Outcome{Kind: OutcomeAuthSuccess, State: StateSucceeded, UserIdentifier: userIdentifier}
}

func AuthFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeAuthFailure, State: StateFailed, Reason: reason}
}

// Abandoned is returned to a caller whose context ended before its run did.
// It is never cached and never surfaced to the user.
func Abandoned() Outcome {
	return AuthFailure(ReasonAbandoned)
}

func (o Outcome) IsAbandoned() bool {
	return o.Kind == OutcomeAuthFailure && o.Reason == ReasonAbandoned
}

func (o Outcome) IsAuthRelated() bool {
	return o.Kind != OutcomeNotAuthRelated
}
