package magiclink

import (
	"context"
	"sync"

	"mates/internal/domain"
	"mates/internal/logger"
)

// Listener feeds the launch URL and every later incoming URL into the resolver.
// The two sources are not serialized against each other.
type Listener struct {
	resolver domain.LinkResolver
	log      logger.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewListener(resolver domain.LinkResolver, log logger.Logger) *Listener {
	return &Listener{
		resolver: resolver,
		log:      log,
	}
}

// Run blocks until ctx is done, then waits for in-flight resolutions.
func (l *Listener) Run(ctx context.Context, src domain.LinkSource) error {
	unsubscribe := src.Subscribe(func(raw string) {
		l.dispatch(ctx, "event", raw)
	})

	initial, ok, err := src.InitialURL(ctx)
	switch {
	case err != nil:
		l.log.Warn("deeplink: failed to read initial url", "error", err)
	case ok:
		l.dispatch(ctx, "initial", initial)
	default:
		l.log.Debug("deeplink: no initial url")
	}

	<-ctx.Done()

	unsubscribe()
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.inflight.Wait()
	l.log.Info("deeplink: listener stopped")

	return nil
}

func (l *Listener) dispatch(ctx context.Context, source, raw string) {
	l.mu.Lock()
	if l.closed || ctx.Err() != nil {
		l.mu.Unlock()
		l.log.Debug("deeplink: dropping link after shutdown", "source", source)
		return
	}
	l.inflight.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.inflight.Done()

		out := l.resolver.Resolve(ctx, raw)
		l.log.Info("deeplink: link handled",
			"source", source,
			"outcome", out.Kind,
			"state", out.State,
			"replayed", out.Replayed,
		)
	}()
}
