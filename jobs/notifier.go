package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-crm/meridian-crm/internal/sales"
)

// PaymentNotifier enqueues receipt jobs for recorded payments.
type PaymentNotifier struct {
	enqueuer *Client
	logger   *slog.Logger
}

// NewPaymentNotifier constructs a PaymentNotifier.
func NewPaymentNotifier(enqueuer *Client, logger *slog.Logger) *PaymentNotifier {
	return &PaymentNotifier{enqueuer: enqueuer, logger: logger}
}

// PaymentRecorded enqueues a receipt for the recorded payment. Enqueue
// failures are logged and never surfaced to the caller.
func (n *PaymentNotifier) PaymentRecorded(ctx context.Context, sale *sales.Sale, payment sales.Payment) {
	if n.enqueuer == nil || sale == nil {
		return
	}

	email := ""
	if sale.CustomerEmail != nil {
		email = *sale.CustomerEmail
	}
	payload := PaymentReceiptPayload{
		SaleID:        sale.ID.String(),
		CustomerName:  sale.CustomerName,
		CustomerEmail: email,
		Amount:        payment.Amount.StringFixed(2),
		Balance:       sale.Balance().StringFixed(2),
		CreditStatus:  string(sale.EffectiveCreditStatus()),
		PaidAt:        payment.PaymentDate,
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := n.enqueuer.EnqueuePaymentReceipt(enqueueCtx, payload); err != nil {
		n.logger.Warn("enqueue payment receipt",
			slog.String("sale_id", payload.SaleID),
			slog.Any("error", err),
		)
	}
}
