package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-crm/meridian-crm/internal/sales"
)

// ReceiptJob turns recorded payments into customer-facing receipt emails.
type ReceiptJob struct {
	enqueuer *Client
	logger   *slog.Logger
	printer  *message.Printer
}

// NewReceiptJob constructs the receipt handler.
func NewReceiptJob(enqueuer *Client, logger *slog.Logger) *ReceiptJob {
	return &ReceiptJob{
		enqueuer: enqueuer,
		logger:   logger,
		printer:  message.NewPrinter(language.English),
	}
}

// Handle processes TaskTypePaymentReceipt: format the amounts and hand the
// rendered mail to the email queue.
func (j *ReceiptJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PaymentReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CustomerEmail == "" {
		j.logger.Info("receipt skipped, no customer email", slog.String("sale_id", payload.SaleID))
		return nil
	}

	body := j.FormatReceipt(payload)
	if j.enqueuer == nil {
		j.logger.Info("receipt rendered", slog.String("sale_id", payload.SaleID))
		return nil
	}
	_, err := j.enqueuer.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      payload.CustomerEmail,
		Subject: fmt.Sprintf("Payment received for invoice %s", payload.SaleID),
		Body:    body,
	})
	return err
}

// FormatReceipt renders the receipt body with locale-aware amount formatting.
func (j *ReceiptJob) FormatReceipt(p PaymentReceiptPayload) string {
	amount := formatAmount(j.printer, p.Amount)
	balance := formatAmount(j.printer, p.Balance)
	line := fmt.Sprintf("Dear %s,\n\nWe received your payment of %s on %s.\n",
		p.CustomerName, amount, p.PaidAt.Format("2 January 2006"))
	if p.CreditStatus == string(sales.CreditStatusPaid) {
		return line + "Your invoice is now fully settled. Thank you.\n"
	}
	return line + fmt.Sprintf("Remaining balance: %s.\n", balance)
}

func formatAmount(p *message.Printer, raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	f, _ := d.Float64()
	return p.Sprintf("%.2f", f)
}
