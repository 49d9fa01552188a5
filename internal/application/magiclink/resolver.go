// Package magiclink turns magic-link deep links into signed-in sessions.
package magiclink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mates/internal/deeplink"
	"mates/internal/domain"
	"mates/internal/event"
	"mates/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	titleSignedIn = "Signed in"
	titleAuthErr  = "Authentication error"

	msgLinkFailed    = "The sign-in link could not be used. Please request a new one."
	msgSignInFailed  = "Failed to sign in. Please request a new magic link."
	msgProblemInLink = "There was a problem processing this link."
)

type ResolverDeps struct {
	Auth      domain.AuthClient
	State     domain.AuthStateStore
	Presenter domain.Presenter

	// Cache enables dedup of already processed links. Nil disables it.
	Cache domain.LinkCache
	Bus   *event.Bus

	ExchangeTimeout time.Duration
}

// Resolver runs one link through
// Classifying -> {NotAuth, ErrorReported, Exchanging -> {Succeeded, Failed}}.
// It keeps no state between runs apart from the optional dedup cache.
type Resolver struct {
	auth      domain.AuthClient
	state     domain.AuthStateStore
	presenter domain.Presenter
	cache     domain.LinkCache
	bus       *event.Bus
	log       logger.Logger

	timeout time.Duration
	group   singleflight.Group
}

func NewResolver(deps ResolverDeps, log logger.Logger) *Resolver {
	return &Resolver{
		auth:      deps.Auth,
		state:     deps.State,
		presenter: deps.Presenter,
		cache:     deps.Cache,
		bus:       deps.Bus,
		log:       log,
		timeout:   deps.ExchangeTimeout,
	}
}

// Resolve never fails: every call ends in exactly one outcome. A caller
// whose ctx ends first gets domain.Abandoned; with dedup enabled the run
// itself carries on detached so the link is still consumed exactly once.
func (r *Resolver) Resolve(ctx context.Context, raw string) domain.Outcome {
	if r.cache == nil {
		return r.run(ctx, raw)
	}

	key := LinkKey(raw)
	leader := false

	ch := r.group.DoChan(key, func() (any, error) {
		leader = true
		return r.resolveOnce(context.WithoutCancel(ctx), key, raw), nil
	})

	select {
	case res := <-ch:
		out := res.Val.(domain.Outcome)
		if !leader {
			out.Replayed = true
		}
		return out
	case <-ctx.Done():
		r.log.Info("deeplink: caller stopped waiting for link", "error", ctx.Err())
		return domain.Abandoned()
	}
}

func (r *Resolver) resolveOnce(ctx context.Context, key, raw string) domain.Outcome {
	cached, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("deeplink: link cache lookup failed", "error", err)
	} else if ok {
		out := *cached
		out.Replayed = true
		r.log.Info("deeplink: link already processed", "outcome", out.Kind)
		return out
	}

	out := r.run(ctx, raw)
	if out.IsAuthRelated() && !out.IsAbandoned() {
		if err := r.cache.Put(ctx, key, out); err != nil {
			r.log.Warn("deeplink: link cache store failed", "error", err)
		}
	}
	return out
}

func (r *Resolver) run(ctx context.Context, raw string) (out domain.Outcome) {
	runID := uuid.New()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("deeplink: panic while resolving link", "run_id", runID, "panic", p)
			r.alert(ctx, domain.Alert{Kind: domain.AlertError, Title: titleAuthErr, Message: msgProblemInLink})
			out = domain.AuthFailure(fmt.Sprintf("unexpected error: %v", p))
		}

		r.log.Debug("deeplink: run finished", "run_id", runID, "state", out.State, "outcome", out.Kind)
		if r.bus != nil {
			r.bus.Publish(domain.EventNameLinkResolved, domain.EventLinkResolved{
				RunID:   runID,
				Outcome: out,
				At:      time.Now(),
			})
		}
	}()

	link := deeplink.Parse(raw)
	r.log.Debug("deeplink: classifying", "run_id", runID, "link", Redact(link))

	if !deeplink.IsAuthCallback(link) {
		r.log.Debug("deeplink: not an auth callback", "run_id", runID)
		return domain.NotAuthRelated()
	}

	extracted := deeplink.Extract(link)

	switch {
	case extracted.Error != "":
		return r.reportError(ctx, runID, extracted)
	case extracted.Credential.HasTokens():
		return r.exchange(ctx, runID, extracted.Credential)
	default:
		r.log.Info("deeplink: auth callback carried no tokens", "run_id", runID)
		return domain.AuthFailure(domain.ReasonNoTokens)
	}
}

func (r *Resolver) reportError(ctx context.Context, runID uuid.UUID, ex domain.Extraction) domain.Outcome {
	r.log.Warn("deeplink: provider reported auth error",
		"run_id", runID,
		"code", ex.Error,
		"description", ex.ErrorDescription,
	)

	msg := ex.ErrorDescription
	if msg == "" {
		msg = msgLinkFailed
	}

	r.alert(ctx, domain.Alert{Kind: domain.AlertError, Title: titleAuthErr, Message: msg})
	r.navigate(ctx, domain.RouteOnboarding)

	return domain.AuthError(ex.Error, ex.ErrorDescription)
}

func (r *Resolver) exchange(ctx context.Context, runID uuid.UUID, cred domain.AuthCredential) domain.Outcome {
	r.log.Info("deeplink: exchanging tokens for session", "run_id", runID, "state", domain.StateExchanging)

	xctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		xctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	session, err := r.auth.SetSession(xctx, cred.AccessToken, cred.RefreshToken)
	if err != nil {
		if ctx.Err() != nil {
			r.log.Info("deeplink: session exchange abandoned", "run_id", runID, "error", err)
			return domain.Abandoned()
		}
		r.log.Warn("deeplink: session exchange failed", "run_id", runID, "error", err)
		r.alert(ctx, domain.Alert{Kind: domain.AlertError, Title: titleAuthErr, Message: msgSignInFailed})
		return domain.AuthFailure(err.Error())
	}

	if session == nil || session.User == nil || session.User.Identifier() == "" {
		r.log.Warn("deeplink: session exchange returned no user", "run_id", runID)
		r.alert(ctx, domain.Alert{Kind: domain.AlertError, Title: titleAuthErr, Message: msgSignInFailed})
		return domain.AuthFailure(domain.ErrNoUserInSession.Error())
	}

	id := session.User.Identifier()

	r.state.SignedIn(session.User)
	r.alert(ctx, domain.Alert{
		Kind:    domain.AlertSuccess,
		Title:   titleSignedIn,
		Message: fmt.Sprintf("Welcome! You are signed in as %s.", id),
	})
	r.navigate(ctx, domain.RouteMain)

	r.log.Info("deeplink: signed in", "run_id", runID, "user_id", session.User.ID)

	return domain.AuthSuccess(id)
}

// Presenter failures must not undo a committed sign-in, so they are contained here.
func (r *Resolver) alert(ctx context.Context, a domain.Alert) {
	defer r.recoverPresenter()
	r.presenter.Alert(ctx, a)
}

func (r *Resolver) navigate(ctx context.Context, route domain.Route) {
	defer r.recoverPresenter()
	r.presenter.Navigate(ctx, route)
}

func (r *Resolver) recoverPresenter() {
	if p := recover(); p != nil {
		r.log.Error("deeplink: presenter panic", "panic", p)
	}
}

// Redact renders a link for logs: parameter names are kept, values are not.
func Redact(link domain.IncomingLink) string {
	var b strings.Builder
	if link.Scheme != "" {
		b.WriteString(link.Scheme)
		b.WriteString("://")
	}
	b.WriteString(link.Path)

	if keys := sortedKeys(link.Query); len(keys) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(keys, "&"))
	}
	if keys := sortedKeys(link.Fragment); len(keys) > 0 {
		b.WriteString("#")
		b.WriteString(strings.Join(keys, "&"))
	}
	return b.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
