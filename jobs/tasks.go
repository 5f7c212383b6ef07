package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePaymentReceipt formats and sends a payment receipt.
	TaskTypePaymentReceipt = "payment:receipt"
	// TaskTypeOverdueScan finds credit sales past their due date.
	TaskTypeOverdueScan = "credit:overdue_scan"
	// TaskTypeIdempotencyCleanup removes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// SMTP delivery is wired per environment; development logs the send.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// PaymentReceiptPayload carries the ledger state needed for a receipt.
type PaymentReceiptPayload struct {
	SaleID        string    `json:"sale_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
	CreditStatus  string    `json:"credit_status"`
	PaidAt        time.Time `json:"paid_at"`
}

// NewPaymentReceiptTask constructs a receipt task.
func NewPaymentReceiptTask(payload PaymentReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePaymentReceipt, data), nil
}

// NewOverdueScanTask constructs an overdue-credit scan task.
func NewOverdueScanTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskTypeOverdueScan, nil), nil
}

// NewIdempotencyCleanupTask constructs a cleanup task with a retention window.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(map[string]string{"retention": retention.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIdempotencyCleanup, data), nil
}
