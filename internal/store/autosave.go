package store

import (
	"context"
	"sync"
	"time"

	"github.com/gridline-app/gridline/internal/service"
)

// DefaultAutosaveDelay is how long TitleAutosave waits after the last edit
// before persisting.
const DefaultAutosaveDelay = 750 * time.Millisecond

// TitleAutosave debounces page title edits. Every Set updates local state
// immediately; the service write happens once the edits go quiet for the
// configured delay. The rollback base is the title that was persisted
// before the current burst of edits began, not the previous keystroke, so
// a failed save restores the last value the server acknowledged.
type TitleAutosave struct {
	store *PageStore
	scope service.Scope
	delay time.Duration

	// onError receives persistence errors from timer-fired saves, which
	// have no caller to return to. Explicit Flush calls return their
	// error directly and do not use the callback.
	onError func(error)

	mu      sync.Mutex
	pending map[string]*pendingTitle
	closed  bool
}

type pendingTitle struct {
	timer *time.Timer
	title string
	base  string
}

// NewTitleAutosave returns a debouncer over store for the given scope.
// A delay of zero uses DefaultAutosaveDelay.
func NewTitleAutosave(store *PageStore, scope service.Scope, delay time.Duration, onError func(error)) *TitleAutosave {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &TitleAutosave{
		store:   store,
		scope:   scope,
		delay:   delay,
		onError: onError,
		pending: make(map[string]*pendingTitle),
	}
}

// Set records a title edit. The local page is updated immediately and the
// save timer restarts; the first edit of a burst captures the current
// title as the rollback base. Edits to unknown pages and edits after Close
// are ignored.
func (a *TitleAutosave) Set(pageID, title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	p, ok := a.pending[pageID]
	if !ok {
		page, found := a.store.Get(pageID)
		if !found {
			return
		}
		p = &pendingTitle{base: page.Title}
		a.pending[pageID] = p
	}
	p.title = title
	a.store.SetTitle(pageID, title)

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(a.delay, func() { a.fire(pageID) })
}

// fire persists the pending edit for pageID when its timer elapses.
func (a *TitleAutosave) fire(pageID string) {
	title, base, ok := a.take(pageID)
	if !ok {
		return
	}
	if err := a.store.PersistTitle(context.Background(), a.scope, pageID, title, base); err != nil {
		if a.onError != nil {
			a.onError(err)
		}
	}
}

// take removes and returns the pending edit for pageID.
func (a *TitleAutosave) take(pageID string) (title, base string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[pageID]
	if !ok {
		return "", "", false
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	delete(a.pending, pageID)
	return p.title, p.base, true
}

// Flush persists any pending edit for pageID immediately, cancelling its
// timer. Pages with no pending edit are a no-op.
func (a *TitleAutosave) Flush(ctx context.Context, pageID string) error {
	title, base, ok := a.take(pageID)
	if !ok {
		return nil
	}
	return a.store.PersistTitle(ctx, a.scope, pageID, title, base)
}

// Close flushes every pending edit and stops accepting new ones. The
// first persistence error is returned; remaining pages are still flushed.
func (a *TitleAutosave) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	var first error
	for _, id := range ids {
		if err := a.Flush(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}
