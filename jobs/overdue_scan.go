package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OverdueScanJob finds credit sales past their due date that are not fully
// paid and enqueues a reminder to the owning agent.
type OverdueScanJob struct {
	pool     *pgxpool.Pool
	enqueuer *Client
	logger   *slog.Logger
}

// NewOverdueScanJob constructs the scan handler.
func NewOverdueScanJob(pool *pgxpool.Pool, enqueuer *Client, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{pool: pool, enqueuer: enqueuer, logger: logger}
}

type overdueSale struct {
	id           string
	customerName string
	agentEmail   string
	finalAmount  decimal.Decimal
	totalPaid    decimal.Decimal
	dueDate      time.Time
}

// Handle processes TaskTypeOverdueScan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	query := `
		SELECT s.id, s.customer_name, a.email, s.final_amount,
		       COALESCE(SUM(p.amount), 0) AS total_paid, s.due_date
		FROM sales s
		JOIN agents a ON a.id = s.agent_id
		LEFT JOIN sale_payments p ON p.sale_id = s.id
		WHERE s.payment_method = 'credit'
		  AND s.credit_status <> 'paid'
		  AND s.status <> 'cancelled'
		  AND s.due_date IS NOT NULL
		  AND s.due_date < NOW()
		GROUP BY s.id, s.customer_name, a.email, s.final_amount, s.due_date
		ORDER BY s.due_date
	`
	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("overdue scan query: %w", err)
	}
	defer rows.Close()

	var overdue []overdueSale
	for rows.Next() {
		var o overdueSale
		if err := rows.Scan(&o.id, &o.customerName, &o.agentEmail, &o.finalAmount, &o.totalPaid, &o.dueDate); err != nil {
			return err
		}
		overdue = append(overdue, o)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	j.logger.Info("overdue credit scan", slog.Int("count", len(overdue)))

	for _, o := range overdue {
		balance := o.finalAmount.Sub(o.totalPaid)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		if j.enqueuer == nil {
			continue
		}
		_, err := j.enqueuer.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      o.agentEmail,
			Subject: fmt.Sprintf("Overdue credit sale %s", o.id),
			Body: fmt.Sprintf("Sale %s for %s was due on %s. Outstanding balance: %s.",
				o.id, o.customerName, o.dueDate.Format("2006-01-02"), balance.StringFixed(2)),
		})
		if err != nil {
			j.logger.Warn("enqueue overdue reminder", slog.String("sale_id", o.id), slog.Any("error", err))
		}
	}
	return nil
}
