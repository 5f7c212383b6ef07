package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// SaleItemInput is the caller-supplied shape of a line item. Totals are never
// part of the input; they are always computed by PriceItems.
type SaleItemInput struct {
	ItemName  string          `json:"itemName" validate:"required,max=200"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Discount  decimal.Decimal `json:"discount"`
}

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	CustomerName  string          `json:"customerName" validate:"required,max=200"`
	CustomerEmail *string         `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone *string         `json:"customerPhone,omitempty" validate:"omitempty,max=32"`
	ClientID      *uuid.UUID      `json:"client,omitempty"`
	Items         []SaleItemInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=cash credit"`
	Status        *SaleStatus     `json:"status,omitempty" validate:"omitempty,oneof=completed pending cancelled"`
	SaleDate      *time.Time      `json:"saleDate,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// UpdateSaleRequest is the body of PUT /sales/{id}. Supplying items re-prices
// the whole sale; totals and credit status are re-derived, never accepted.
type UpdateSaleRequest struct {
	CustomerName  *string          `json:"customerName,omitempty" validate:"omitempty,min=1,max=200"`
	CustomerEmail *string          `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone *string          `json:"customerPhone,omitempty" validate:"omitempty,max=32"`
	ClientID      *uuid.UUID       `json:"client,omitempty"`
	Items         *[]SaleItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Status        *SaleStatus      `json:"status,omitempty" validate:"omitempty,oneof=completed pending cancelled"`
	DueDate       *time.Time       `json:"dueDate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// RecordPaymentRequest is the body of POST /sales/{id}/payments.
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentChannel  `json:"paymentMethod" validate:"omitempty,oneof=cash bank_transfer online"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	BankName      *string         `json:"bankName,omitempty" validate:"omitempty,max=100"`
	AccountName   *string         `json:"accountName,omitempty" validate:"omitempty,max=100"`
	CardNumber    *string         `json:"cardNumber,omitempty" validate:"omitempty,max=32"`
	Notes         *string         `json:"notes,omitempty"`
}

// ListSalesRequest captures the GET /sales filters.
type ListSalesRequest struct {
	PaymentMethod *PaymentMethod
	Status        *SaleStatus
	CreditStatus  *CreditStatus
	ClientID      *uuid.UUID
	AgentID       *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// SaleResponse is the API shape of a sale, with the derived balance and total
// paid included so clients never recompute ledger state themselves.
type SaleResponse struct {
	Sale
	TotalPaid decimal.Decimal `json:"totalPaid"`
	Balance   decimal.Decimal `json:"balance"`
}

// NewSaleResponse builds the response shape for a sale.
func NewSaleResponse(s *Sale) SaleResponse {
	return SaleResponse{Sale: *s, TotalPaid: s.TotalPaid(), Balance: s.Balance()}
}

// ListSalesResponse is the paginated listing envelope.
type ListSalesResponse struct {
	Sales      []SaleResponse    `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}
