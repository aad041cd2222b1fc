package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/funnel/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Step entries and answers go to Info,
// failures to Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter",
				"step_id", e.StepID,
				"kind", e.Kind,
				"position", e.Position,
				"cause", e.Cause,
			)
		},
		OnAnswer: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.InfoContext(ctx, "answer", "step_id", e.StepID, "kind", e.Kind)
		},
		OnSyncError: func(ctx context.Context, e *domain.FailureEvent) {
			logger.WarnContext(ctx, "sync_error", "op", e.Op, "session_id", e.Key, "err", e.Err)
		},
		OnPersistError: func(ctx context.Context, e *domain.FailureEvent) {
			logger.WarnContext(ctx, "persist_error", "op", e.Op, "key", e.Key, "err", e.Err)
		},
	}
}
