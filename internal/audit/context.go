package audit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nextcrm/backoffice-core-go/internal/audit/entity"
)

// Event is the handler-side view of a queued audit entry. Client address,
// user agent, and session key are filled in by the middleware at flush time.
// UserID is normally resolved from the request identity; login and logout
// set it explicitly because the session cookie is absent or already cleared
// when the middleware runs.
type Event struct {
	Action     entity.Action
	EntityName string
	EntityID   *int64
	EntityRepr string
	Changes    json.RawMessage
	UserID     *int64
}

type queueKey struct{}

// slot holds at most one queued event per request. A handler that queues
// twice overwrites its earlier event; one request yields one audit record.
type slot struct {
	mu sync.Mutex
	ev *Event
}

// WithQueue installs an empty audit slot into the request context. The
// middleware chain does this once per request before the handler runs.
func WithQueue(ctx context.Context) context.Context {
	return context.WithValue(ctx, queueKey{}, &slot{})
}

// Queue stores the event in the request's audit slot. A no-op when no slot
// is present (e.g. direct service calls outside the HTTP chain).
func Queue(ctx context.Context, ev Event) {
	s, ok := ctx.Value(queueKey{}).(*slot)
	if !ok {
		return
	}
	s.mu.Lock()
	s.ev = &ev
	s.mu.Unlock()
}

// Take removes and returns the queued event, or nil when nothing was queued.
func Take(ctx context.Context) *Event {
	s, ok := ctx.Value(queueKey{}).(*slot)
	if !ok {
		return nil
	}
	s.mu.Lock()
	ev := s.ev
	s.ev = nil
	s.mu.Unlock()
	return ev
}
