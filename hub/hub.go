/*package hub dispatches simulation checkpoints to observers such as storage,
plotting and metrics. Delivery is synchronous and in subscription order.
*/
package hub

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/phil-mansfield/gosinter/particle"
)

// Kind identifies the lifecycle point an event was published at.
type Kind int

const (
	// StageCompleted marks a pipeline checkpoint: initial, compacted,
	// remeshed and final.
	StageCompleted Kind = iota
	// StateReported carries intermediate states of a stage, e.g. every
	// compaction step.
	StateReported
	// SessionInitialized fires once per solver session with the state
	// after remeshing and before the first step.
	SessionInitialized
	// StepCalculated fires once per accepted solver step.
	StepCalculated
	EndKind
)

var kindNames = [EndKind]string{
	"StageCompleted", "StateReported", "SessionInitialized", "StepCalculated",
}

func (k Kind) String() string {
	if k < 0 || k >= EndKind {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Event is a single checkpoint. Old is nil for events which only carry one
// state.
type Event struct {
	Kind  Kind
	Label string
	Index int
	Old   *particle.SystemState
	New   *particle.SystemState
}

// Handler observes events. Returning an error never alters the event.
type Handler func(ev Event) error

// ObserverError reports the failure of a critical observer.
type ObserverError struct {
	Kind  Kind
	Label string
	Err   error
}

func (e *ObserverError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("observer of %s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("observer '%s' of %s failed: %v", e.Label, e.Kind, e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }

type subscriber struct {
	id       uint64
	kind     Kind
	label    string
	fn       Handler
	tolerant bool
}

// Option configures a subscription.
type Option func(*subscriber)

// Tolerant makes the observer's failures logged instead of aborting
// delivery.
func Tolerant() Option { return func(s *subscriber) { s.tolerant = true } }

// Named labels the observer in errors and log lines.
func Named(label string) Option { return func(s *subscriber) { s.label = label } }

// Policy returns Tolerant() if tolerant is set and a no-op option otherwise.
func Policy(tolerant bool) Option {
	if tolerant {
		return Tolerant()
	}
	return func(*subscriber) {}
}

// Hub is the per-run observer registry.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	next uint64
	subs map[Kind][]*subscriber
}

// New creates an empty hub. A nil logger discards tolerated failures.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{logger: logger, subs: map[Kind][]*subscriber{}}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub  *Hub
	id   uint64
	kind Kind
	once sync.Once
}

// Subscribe registers fn for events of the given kind.
func (h *Hub) Subscribe(kind Kind, fn Handler, opts ...Option) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	s := &subscriber{id: h.next, kind: kind, fn: fn}
	for _, opt := range opts {
		opt(s)
	}
	h.subs[kind] = append(h.subs[kind], s)
	return &Subscription{hub: h, id: s.id, kind: kind}
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() { sub.hub.remove(sub.kind, sub.id) })
}

func (h *Hub) remove(kind Kind, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[kind]
	for i, s := range subs {
		if s.id == id {
			out := make([]*subscriber, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			h.subs[kind] = append(out, subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers for a kind.
func (h *Hub) Len(kind Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[kind])
}

// Publish delivers ev to every subscriber of its kind in subscription order.
// A failing critical subscriber stops delivery and its error is returned as
// an *ObserverError.
func (h *Hub) Publish(ev Event) error {
	h.mu.Lock()
	subs := h.subs[ev.Kind]
	h.mu.Unlock()

	for _, s := range subs {
		err := s.fn(ev)
		if err == nil {
			continue
		}
		if s.tolerant {
			h.logger.Warn("observer failed", "kind", ev.Kind.String(),
				"observer", s.label, "event", ev.Label, "error", err)
			continue
		}
		return &ObserverError{Kind: ev.Kind, Label: s.label, Err: err}
	}
	return nil
}
