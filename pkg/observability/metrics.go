package observability

import (
	"context"
	"errors"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "funnel"

// Metrics holds the quiz counters.
type Metrics struct {
	StepEntries     *prometheus.CounterVec
	Answers         *prometheus.CounterVec
	SyncFailures    *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg. A nil reg skips
// registration. Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StepEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "step_entries_total",
			Help:      "Total number of step entries, by step and cause.",
		}, []string{"step_id", "cause"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "answers_total",
			Help:      "Total number of committed answers, by step.",
		}, []string{"step_id"}),
		SyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_failures_total",
			Help:      "Remote session calls that failed, by operation.",
		}, []string{"op"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persist_failures_total",
			Help:      "Local store writes that failed, by operation.",
		}, []string{"op"}),
	}
	if reg == nil {
		return m, nil
	}

	for _, c := range []**prometheus.CounterVec{&m.StepEntries, &m.Answers, &m.SyncFailures, &m.PersistFailures} {
		if err := reg.Register(*c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			*c = existing
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.StepEntries.WithLabelValues(e.StepID, e.Cause).Inc()
		},
		OnAnswer: func(ctx context.Context, e *domain.AnswerEvent) {
			m.Answers.WithLabelValues(e.StepID).Inc()
		},
		OnSyncError: func(ctx context.Context, e *domain.FailureEvent) {
			m.SyncFailures.WithLabelValues(e.Op).Inc()
		},
		OnPersistError: func(ctx context.Context, e *domain.FailureEvent) {
			m.PersistFailures.WithLabelValues(e.Op).Inc()
		},
	}
}
