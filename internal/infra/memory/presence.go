package memory

import (
	"context"
	"sync"
	"time"

	"contest-engine/internal/domain"
)

// PresenceTracker is an in-memory implementation of app.PresenceTracker.
type PresenceTracker struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	lastSeen map[string]time.Time
}

func NewPresenceTracker(ttl time.Duration) *PresenceTracker {
	return NewPresenceTrackerWithClock(ttl, time.Now)
}

// NewPresenceTrackerWithClock is test-only for deterministic timestamps.
func NewPresenceTrackerWithClock(ttl time.Duration, clock func() time.Time) *PresenceTracker {
	return &PresenceTracker{ttl: ttl, clock: clock, lastSeen: make(map[string]time.Time)}
}

func (p *PresenceTracker) Touch(_ context.Context, participantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen[participantID] = p.clock()
	return nil
}

func (p *PresenceTracker) Online(_ context.Context, participantIDs []string) (map[string]bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	now := p.clock()
	online := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen, ok := p.lastSeen[id]; ok && now.Sub(seen) < p.ttl {
			online[id] = true
		}
	}
	return online, nil
}

func (p *PresenceTracker) Forget(_ context.Context, participantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lastSeen, participantID)
	return nil
}

// EventRecorder keeps published events in memory. It backs the event stream
// when no broker is configured and lets tests assert on audit output.
type EventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *EventRecorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}
