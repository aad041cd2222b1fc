package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter    EventType = "step_enter"
	EventAnswer       EventType = "answer"
	EventSyncError    EventType = "sync_error"
	EventPersistError EventType = "persist_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StepEvent represents entry into a step.
type StepEvent struct {
	EventBase
	StepID   string   `json:"step_id"`
	Kind     StepKind `json:"kind"`
	Position int      `json:"position"`
	// Cause is "init", "advance", "back" or "navigate".
	Cause string `json:"cause"`
}

// AnswerEvent represents a committed answer.
type AnswerEvent struct {
	EventBase
	StepID string     `json:"step_id"`
	Kind   AnswerKind `json:"kind"`
}

// FailureEvent represents a swallowed failure of a side-effect.
type FailureEvent struct {
	EventBase
	// Op names the failed operation, e.g. "create", "update", "store".
	Op  string `json:"op"`
	Key string `json:"key,omitempty"`
	Err error  `json:"-"`
}

// LifecycleHooks defines callbacks for sequencer observability.
type LifecycleHooks struct {
	OnStepEnter    func(context.Context, *StepEvent)
	OnAnswer       func(context.Context, *AnswerEvent)
	OnSyncError    func(context.Context, *FailureEvent)
	OnPersistError func(context.Context, *FailureEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:    chain(h.OnStepEnter, other.OnStepEnter),
		OnAnswer:       chain(h.OnAnswer, other.OnAnswer),
		OnSyncError:    chain(h.OnSyncError, other.OnSyncError),
		OnPersistError: chain(h.OnPersistError, other.OnPersistError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
