// Package worker consumes expense lifecycle events and maintains the
// audit trail.
package worker

import (
	"context"
	"fmt"

	"khoroch/internal/events"
	"khoroch/internal/log"
	"khoroch/internal/storage"
)

// AuditWorker appends one audit row per lifecycle event. Handler errors
// propagate to the consumer, which requeues the delivery.
type AuditWorker struct {
	storage   *storage.SQLiteRepository
	logger    *log.Logger
	processed int64
}

func NewAuditWorker(storage *storage.SQLiteRepository, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent records a single lifecycle event in the audit trail.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *events.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("validate event: %w", err)
	}

	if err := w.storage.RecordEvent(ctx, msg.ID, msg.Action, msg.OccurredAt); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	w.processed++
	w.logger.InfoContext(ctx, "Audit event recorded",
		log.FieldExpenseID, msg.ID,
		log.FieldAction, msg.Action)

	return nil
}

// Processed returns how many events this worker has recorded.
func (w *AuditWorker) Processed() int64 {
	return w.processed
}
