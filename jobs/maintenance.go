package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

const defaultIdempotencyRetention = 7 * 24 * time.Hour

// MaintenanceJob owns periodic housekeeping tasks.
type MaintenanceJob struct {
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
}

// NewMaintenanceJob constructs the maintenance handler.
func NewMaintenanceJob(idempotency *shared.IdempotencyStore, logger *slog.Logger) *MaintenanceJob {
	return &MaintenanceJob{idempotency: idempotency, logger: logger}
}

// HandleIdempotencyCleanup processes TaskTypeIdempotencyCleanup.
func (j *MaintenanceJob) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	retention := defaultIdempotencyRetention
	var payload map[string]string
	if err := json.Unmarshal(t.Payload(), &payload); err == nil {
		if parsed, err := time.ParseDuration(payload["retention"]); err == nil && parsed > 0 {
			retention = parsed
		}
	}

	if err := j.idempotency.Cleanup(ctx, retention); err != nil {
		return err
	}
	j.logger.Info("idempotency keys cleaned", slog.Duration("retention", retention))
	return nil
}
