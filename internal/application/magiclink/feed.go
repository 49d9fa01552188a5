package magiclink

import (
	"context"
	"sync"
)

const maxPendingLinks = 16

// Feed is the in-process URL listener: the launch URL is handed out once and
// pushed URLs are fanned out to subscribers. Links pushed while nobody is
// subscribed are held (up to maxPendingLinks) for the first subscriber.
type Feed struct {
	mu          sync.Mutex
	initial     string
	initialUsed bool
	subs        map[int]func(string)
	nextID      int
	pending     []string
}

func NewFeed(initialURL string) *Feed {
	return &Feed{
		initial: initialURL,
		subs:    make(map[int]func(string)),
	}
}

func (f *Feed) InitialURL(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialUsed || f.initial == "" {
		return "", false, nil
	}
	f.initialUsed = true
	return f.initial, true, nil
}

func (f *Feed) Subscribe(onURL func(string)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = onURL
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, raw := range pending {
		onURL(raw)
	}

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Push reports whether the link was delivered or queued.
func (f *Feed) Push(raw string) bool {
	f.mu.Lock()
	if len(f.subs) == 0 {
		defer f.mu.Unlock()
		if len(f.pending) >= maxPendingLinks {
			return false
		}
		f.pending = append(f.pending, raw)
		return true
	}

	subs := make([]func(string), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(raw)
	}
	return true
}
