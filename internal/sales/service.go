package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// appendRetries bounds the optimistic-concurrency retry loop for writes that
// race on the same sale.
const appendRetries = 3

// Notifier receives ledger events for out-of-band processing (receipts).
// Implementations must not block the request path.
type Notifier interface {
	PaymentRecorded(ctx context.Context, sale *Sale, payment Payment)
}

// Service implements the invoice builder and the payment ledger.
type Service struct {
	repo     Repository
	audit    shared.AuditRecorder
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs the sales service. notifier may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger}
}

// CreateSale validates and prices the line items into a new sale. Totals are
// computed from the items; nothing priced is accepted from the caller. No
// write happens unless validation passes in full.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest, agentID uuid.UUID) (*Sale, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	totals, items := PriceItems(req.Items)

	sale := &Sale{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ClientID:      req.ClientID,
		AgentID:       agentID,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		FinalAmount:   totals.FinalAmount,
		PaymentMethod: req.PaymentMethod,
		Status:        SaleStatusCompleted,
		SaleDate:      time.Now(),
		Notes:         req.Notes,
		Items:         items,
	}
	if req.Status != nil {
		sale.Status = *req.Status
	}
	if req.SaleDate != nil {
		sale.SaleDate = *req.SaleDate
	}
	if sale.IsCredit() {
		status := CreditStatusUnpaid
		sale.CreditStatus = &status
		sale.DueDate = req.DueDate
	}

	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	s.recordAudit(ctx, agentID, shared.AuditSaleCreated, sale.ID, map[string]any{
		"finalAmount":   sale.FinalAmount.String(),
		"paymentMethod": string(sale.PaymentMethod),
		"items":         len(sale.Items),
	})

	return sale, nil
}

// UpdateSale re-runs the same validation and pricing as creation. When items
// change on a credit sale, the credit status is re-derived against the new
// final amount over the unchanged payment history; payments themselves are
// never rescaled or invalidated.
func (s *Service) UpdateSale(ctx context.Context, id uuid.UUID, req UpdateSaleRequest, agentID uuid.UUID) (*Sale, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < appendRetries; attempt++ {
		sale, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if req.CustomerName != nil {
			sale.CustomerName = *req.CustomerName
		}
		if req.CustomerEmail != nil {
			sale.CustomerEmail = req.CustomerEmail
		}
		if req.CustomerPhone != nil {
			sale.CustomerPhone = req.CustomerPhone
		}
		if req.ClientID != nil {
			sale.ClientID = req.ClientID
		}
		if req.Status != nil {
			sale.Status = *req.Status
		}
		if req.Notes != nil {
			sale.Notes = req.Notes
		}
		if req.DueDate != nil && sale.IsCredit() {
			sale.DueDate = req.DueDate
		}
		if req.Items != nil {
			totals, items := PriceItems(*req.Items)
			sale.Subtotal = totals.Subtotal
			sale.DiscountTotal = totals.DiscountTotal
			sale.FinalAmount = totals.FinalAmount
			sale.Items = items
		}
		if sale.IsCredit() {
			status := DeriveCreditStatus(sale.FinalAmount, sale.TotalPaid())
			sale.CreditStatus = &status
		}

		err = s.repo.Update(ctx, sale, sale.Version)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update sale: %w", err)
		}

		s.recordAudit(ctx, agentID, shared.AuditSaleUpdated, sale.ID, map[string]any{
			"finalAmount": sale.FinalAmount.String(),
		})

		return s.repo.Get(ctx, id)
	}

	return nil, ErrConflict
}

// RecordPayment appends one payment to a credit sale and re-derives the
// credit status from the entire payment history. The append and the derived
// write happen atomically, conditioned on the sale version; on a version miss
// the whole read-compute-write is retried.
func (s *Service) RecordPayment(ctx context.Context, saleID uuid.UUID, req RecordPaymentRequest, agentID uuid.UUID) (*Sale, error) {
	if err := validatePayment(req); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < appendRetries; attempt++ {
		sale, err := s.repo.Get(ctx, saleID)
		if err != nil {
			return nil, err
		}
		if !sale.IsCredit() {
			return nil, ErrNotCreditSale
		}

		payment := Payment{
			ID:          uuid.New(),
			SaleID:      sale.ID,
			Amount:      req.Amount,
			PaymentDate: time.Now(),
			Method:      PaymentChannelCash,
			BankName:    req.BankName,
			AccountName: req.AccountName,
			CardNumber:  req.CardNumber,
			Notes:       req.Notes,
			RecordedBy:  agentID,
		}
		if req.PaymentDate != nil {
			payment.PaymentDate = *req.PaymentDate
		}
		if req.PaymentMethod != "" {
			payment.Method = req.PaymentMethod
		}

		newTotal := sale.TotalPaid().Add(payment.Amount)
		newStatus := DeriveCreditStatus(sale.FinalAmount, newTotal)
		overpaid := newTotal.GreaterThan(sale.FinalAmount)

		err = s.repo.AppendPayment(ctx, sale.ID, &payment, newStatus, sale.Version)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("append payment: %w", err)
		}

		if overpaid {
			s.logger.Warn("payment exceeds amount owed",
				slog.String("sale_id", sale.ID.String()),
				slog.String("total_paid", newTotal.String()),
				slog.String("final_amount", sale.FinalAmount.String()))
		}
		s.recordAudit(ctx, agentID, shared.AuditPaymentRecorded, sale.ID, map[string]any{
			"paymentId":    payment.ID.String(),
			"amount":       payment.Amount.String(),
			"creditStatus": string(newStatus),
			"overpaid":     overpaid,
		})

		updated, err := s.repo.Get(ctx, saleID)
		if err != nil {
			return nil, err
		}
		if s.notifier != nil {
			s.notifier.PaymentRecorded(ctx, updated, payment)
		}
		return updated, nil
	}

	return nil, ErrConflict
}

// GetSale returns a sale with its items and payments.
func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// ListSales returns a filtered page of sales with their ledgers.
func (s *Service) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, saleID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: saleID.String(),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
