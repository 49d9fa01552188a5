package magiclink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mates/internal/application/authstate"
	"mates/internal/deeplink"
	"mates/internal/domain"
	"mates/internal/event"
	"mates/internal/logger"
)

const successURL = "mates://auth/callback#access_token=A1&refresh_token=R1&token_type=bearer&expires_in=3600"

type fakeAuth struct {
	mu      sync.Mutex
	calls   int
	got     [][2]string
	session *domain.Session
	err     error
	release chan struct{}
	panics  bool
}

func (f *fakeAuth) SetSession(ctx context.Context, access, refresh string) (*domain.Session, error) {
	f.mu.Lock()
	f.calls++
	f.got = append(f.got, [2]string{access, refresh})
	f.mu.Unlock()

	if f.panics {
		panic("provider sdk exploded")
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.session, f.err
}

func (f *fakeAuth) GetSession(context.Context) (*domain.Session, error)     { return nil, nil }
func (f *fakeAuth) RefreshSession(context.Context) (*domain.Session, error) { return nil, nil }
func (f *fakeAuth) SignOut(context.Context) error                           { return nil }

func (f *fakeAuth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPresenter struct {
	mu     sync.Mutex
	routes []domain.Route
	alerts []domain.Alert
}

func (p *recordingPresenter) Navigate(_ context.Context, route domain.Route) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, route)
}

func (p *recordingPresenter) Alert(_ context.Context, alert domain.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]domain.Outcome
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]domain.Outcome)} }

func (c *mapCache) Get(_ context.Context, key string) (*domain.Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	return &out, true, nil
}

func (c *mapCache) Put(_ context.Context, key string, out domain.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = out
	return nil
}

type fixture struct {
	auth      *fakeAuth
	state     *authstate.Store
	presenter *recordingPresenter
	resolver  *Resolver
}

func newFixture(t *testing.T, auth *fakeAuth, cache domain.LinkCache) *fixture {
	t.Helper()

	f := &fixture{
		auth:      auth,
		state:     authstate.NewStore(),
		presenter: &recordingPresenter{},
	}
	f.resolver = NewResolver(ResolverDeps{
		Auth:            auth,
		State:           f.state,
		Presenter:       f.presenter,
		Cache:           cache,
		ExchangeTimeout: time.Second,
	}, logger.NewNop())
	return f
}

func userSession(email string) *domain.Session {
	return &domain.Session{AccessToken: "A1", RefreshToken: "R1", User: &domain.User{ID: "u-1", Email: email}}
}

func TestResolveNotAuthRelated(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, nil)

	out := f.resolver.Resolve(context.Background(), "mates://chores/42")

	assert.Equal(t, domain.NotAuthRelated(), out)
	assert.Zero(t, f.auth.Calls())
	assert.Empty(t, f.presenter.routes)
	assert.Empty(t, f.presenter.alerts)
	assert.False(t, f.state.Snapshot().IsReady)
}

func TestResolveSuccess(t *testing.T) {
	f := newFixture(t, &fakeAuth{session: userSession("x@y.com")}, nil)

	out := f.resolver.Resolve(context.Background(), successURL)

	assert.Equal(t, domain.OutcomeAuthSuccess, out.Kind)
	assert.Equal(t, domain.StateSucceeded, out.State)
	assert.Equal(t, "x@y.com", out.UserIdentifier)

	assert.Equal(t, [][2]string{{"A1", "R1"}}, f.auth.got)

	st := f.state.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "x@y.com", st.User.Email)
	assert.True(t, st.IsReady)

	assert.Equal(t, []domain.Route{domain.RouteMain}, f.presenter.routes)
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, domain.AlertSuccess, f.presenter.alerts[0].Kind)
	assert.Contains(t, f.presenter.alerts[0].Message, "x@y.com")
}

func TestResolveProviderError(t *testing.T) {
	f := newFixture(t, &fakeAuth{session: userSession("x@y.com")}, nil)

	out := f.resolver.Resolve(context.Background(),
		"mates://auth/callback#error=access_denied&error_description=User+cancelled")

	assert.Equal(t, domain.AuthError("access_denied", "User cancelled"), out)
	assert.Zero(t, f.auth.Calls())
	assert.Equal(t, []domain.Route{domain.RouteOnboarding}, f.presenter.routes)
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, "User cancelled", f.presenter.alerts[0].Message)
	assert.Equal(t, domain.AuthState{}, f.state.Snapshot())
}

func TestResolveProviderErrorWithoutDescriptionUsesGenericMessage(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, nil)

	out := f.resolver.Resolve(context.Background(), "https://mates.app/auth/callback?error=server_error")

	assert.Equal(t, domain.OutcomeAuthError, out.Kind)
	assert.Equal(t, "server_error", out.Code)
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, msgLinkFailed, f.presenter.alerts[0].Message)
}

func TestResolveNoTokensIsSilent(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, nil)

	out := f.resolver.Resolve(context.Background(), "mates://auth/callback")

	assert.Equal(t, domain.AuthFailure(domain.ReasonNoTokens), out)
	assert.Zero(t, f.auth.Calls())
	assert.Empty(t, f.presenter.alerts)
	assert.Empty(t, f.presenter.routes)
	assert.Equal(t, domain.AuthState{}, f.state.Snapshot())
}

func TestResolveOnlyOneTokenIsNoTokens(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, nil)

	out := f.resolver.Resolve(context.Background(), "mates://auth/callback#access_token=A1")

	assert.Equal(t, domain.ReasonNoTokens, out.Reason)
	assert.Zero(t, f.auth.Calls())
}

func TestResolveExchangeFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, &fakeAuth{err: &domain.APIError{Status: 401, Code: "bad_jwt", Message: "invalid JWT"}}, nil)
	f.state.SignedIn(&domain.User{ID: "previous", Email: "old@y.com"})
	before := f.state.Snapshot()

	out := f.resolver.Resolve(context.Background(), successURL)

	assert.Equal(t, domain.OutcomeAuthFailure, out.Kind)
	assert.Contains(t, out.Reason, "invalid JWT")
	assert.Equal(t, before, f.state.Snapshot())
	assert.Empty(t, f.presenter.routes)
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, msgSignInFailed, f.presenter.alerts[0].Message)
}

func TestResolveSessionWithoutUserFails(t *testing.T) {
	f := newFixture(t, &fakeAuth{session: &domain.Session{AccessToken: "A1"}}, nil)

	out := f.resolver.Resolve(context.Background(), successURL)

	assert.Equal(t, domain.AuthFailure(domain.ErrNoUserInSession.Error()), out)
	assert.Equal(t, domain.AuthState{}, f.state.Snapshot())
	assert.Empty(t, f.presenter.routes)
}

func TestResolveRecoversPanic(t *testing.T) {
	f := newFixture(t, &fakeAuth{panics: true}, nil)

	var out domain.Outcome
	require.NotPanics(t, func() {
		out = f.resolver.Resolve(context.Background(), successURL)
	})

	assert.Equal(t, domain.OutcomeAuthFailure, out.Kind)
	assert.Contains(t, out.Reason, "provider sdk exploded")
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, msgProblemInLink, f.presenter.alerts[0].Message)
	assert.Equal(t, domain.AuthState{}, f.state.Snapshot())
}

func TestResolveExchangeHonoursTimeout(t *testing.T) {
	auth := &fakeAuth{session: userSession("x@y.com"), release: make(chan struct{})}
	f := newFixture(t, auth, nil)
	f.resolver.timeout = 20 * time.Millisecond

	out := f.resolver.Resolve(context.Background(), successURL)

	assert.Equal(t, domain.OutcomeAuthFailure, out.Kind)
	assert.Contains(t, out.Reason, context.DeadlineExceeded.Error())
	assert.Nil(t, f.state.Snapshot().User)
}

func TestResolveCancelledCallerIsAbandonedQuietly(t *testing.T) {
	auth := &fakeAuth{session: userSession("x@y.com"), release: make(chan struct{})}
	f := newFixture(t, auth, nil)
	f.state.SignedIn(&domain.User{ID: "previous"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.resolver.Resolve(ctx, successURL)

	assert.Equal(t, domain.Abandoned(), out)
	assert.True(t, out.IsAbandoned())
	assert.Empty(t, f.presenter.alerts)
	assert.Empty(t, f.presenter.routes)
	assert.Equal(t, "previous", f.state.Snapshot().User.ID)
}

func TestResolveCancelledCallerDoesNotPoisonDedup(t *testing.T) {
	auth := &fakeAuth{session: userSession("x@y.com"), release: make(chan struct{})}
	cache := newMapCache()
	f := newFixture(t, auth, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan domain.Outcome, 1)
	go func() { done <- f.resolver.Resolve(ctx, successURL) }()

	require.Eventually(t, func() bool { return auth.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.Equal(t, domain.Abandoned(), <-done)

	close(auth.release)
	require.Eventually(t, func() bool {
		out, ok, _ := cache.Get(context.Background(), LinkKey(successURL))
		return ok && out.Kind == domain.OutcomeAuthSuccess
	}, time.Second, time.Millisecond)

	again := f.resolver.Resolve(context.Background(), successURL)

	assert.Equal(t, domain.OutcomeAuthSuccess, again.Kind)
	assert.True(t, again.Replayed)
	assert.Equal(t, 1, auth.Calls())
	assert.Equal(t, "x@y.com", f.state.Snapshot().User.Email)

	f.presenter.mu.Lock()
	defer f.presenter.mu.Unlock()
	require.Len(t, f.presenter.alerts, 1)
	assert.Equal(t, domain.AlertSuccess, f.presenter.alerts[0].Kind)
}

func TestResolveConcurrentDuplicatesWithoutDedup(t *testing.T) {
	auth := &fakeAuth{session: userSession("x@y.com"), release: make(chan struct{})}
	f := newFixture(t, auth, nil)

	var wg sync.WaitGroup
	outs := make([]domain.Outcome, 2)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = f.resolver.Resolve(context.Background(), successURL)
		}(i)
	}

	require.Eventually(t, func() bool { return auth.Calls() == 2 }, time.Second, time.Millisecond)
	close(auth.release)
	wg.Wait()

	for _, out := range outs {
		assert.Equal(t, domain.AuthSuccess("x@y.com"), out)
	}

	st := f.state.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, domain.AuthState{User: userSession("x@y.com").User, IsReady: true}, st)
}

func TestResolveConcurrentDuplicatesWithDedup(t *testing.T) {
	auth := &fakeAuth{session: userSession("x@y.com"), release: make(chan struct{})}
	f := newFixture(t, auth, newMapCache())

	var wg sync.WaitGroup
	outs := make([]domain.Outcome, 2)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = f.resolver.Resolve(context.Background(), successURL)
		}(i)
	}

	require.Eventually(t, func() bool { return auth.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(auth.release)
	wg.Wait()

	assert.Equal(t, 1, auth.Calls())

	replayed := 0
	for _, out := range outs {
		assert.Equal(t, domain.OutcomeAuthSuccess, out.Kind)
		if out.Replayed {
			replayed++
		}
	}
	assert.Equal(t, 1, replayed)
	assert.Equal(t, []domain.Route{domain.RouteMain}, f.presenter.routes)
	assert.Equal(t, "x@y.com", f.state.Snapshot().User.Email)
}

func TestResolveReplaysProcessedLink(t *testing.T) {
	f := newFixture(t, &fakeAuth{session: userSession("x@y.com")}, newMapCache())

	first := f.resolver.Resolve(context.Background(), successURL)
	second := f.resolver.Resolve(context.Background(), successURL)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.UserIdentifier, second.UserIdentifier)
	assert.Equal(t, 1, f.auth.Calls())
	assert.Len(t, f.presenter.routes, 1)
}

func TestResolveDoesNotCacheNonAuthLinks(t *testing.T) {
	cache := newMapCache()
	f := newFixture(t, &fakeAuth{}, cache)

	f.resolver.Resolve(context.Background(), "mates://chores/42")

	assert.Empty(t, cache.m)
}

func TestResolvePublishesOutcome(t *testing.T) {
	bus := event.New(logger.NewNop())
	var got []domain.EventLinkResolved
	bus.Subscribe(domain.EventNameLinkResolved, func(e any) {
		got = append(got, e.(domain.EventLinkResolved))
	})

	f := newFixture(t, &fakeAuth{}, nil)
	f.resolver.bus = bus

	f.resolver.Resolve(context.Background(), "mates://auth/callback")

	require.Len(t, got, 1)
	assert.Equal(t, domain.ReasonNoTokens, got[0].Outcome.Reason)
}

func TestRedactDropsValues(t *testing.T) {
	s := Redact(deeplink.Parse(successURL + "&x=1"))

	assert.Equal(t, "mates://auth/callback#access_token&expires_in&refresh_token&token_type&x", s)
	assert.NotContains(t, s, "A1")
}

func TestLinkKeyIsStableAndOpaque(t *testing.T) {
	assert.Equal(t, LinkKey(successURL), LinkKey(successURL))
	assert.NotEqual(t, LinkKey(successURL), LinkKey(successURL+"x"))
	assert.NotContains(t, LinkKey(successURL), "A1")
}
