package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod distinguishes settled-at-creation sales from credit sales.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCredit PaymentMethod = "credit"
)

// SaleStatus is the document-level status, independent of the ledger.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// CreditStatus classifies a credit sale's payment history against the amount
// owed. It is always derived, never set directly by a caller.
type CreditStatus string

const (
	CreditStatusUnpaid  CreditStatus = "unpaid"
	CreditStatusPartial CreditStatus = "partial"
	CreditStatusPaid    CreditStatus = "paid"
)

// PaymentChannel is how an individual payment was made.
type PaymentChannel string

const (
	PaymentChannelCash         PaymentChannel = "cash"
	PaymentChannelBankTransfer PaymentChannel = "bank_transfer"
	PaymentChannelOnline       PaymentChannel = "online"
)

// Sale is the aggregate root: an invoice over priced line items plus, for
// credit sales, the append-only payment ledger.
type Sale struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	CustomerName  string          `json:"customerName" db:"customer_name"`
	CustomerEmail *string         `json:"customerEmail,omitempty" db:"customer_email"`
	CustomerPhone *string         `json:"customerPhone,omitempty" db:"customer_phone"`
	ClientID      *uuid.UUID      `json:"client,omitempty" db:"client_id"`
	AgentID       uuid.UUID       `json:"agent" db:"agent_id"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal" db:"discount_total"`
	FinalAmount   decimal.Decimal `json:"finalAmount" db:"final_amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	Status        SaleStatus      `json:"status" db:"status"`
	SaleDate      time.Time       `json:"saleDate" db:"sale_date"`
	DueDate       *time.Time      `json:"dueDate,omitempty" db:"due_date"`
	CreditStatus  *CreditStatus   `json:"creditStatus,omitempty" db:"credit_status"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	Version       int64           `json:"-" db:"version"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	Items         []SaleItem      `json:"items" db:"-"`
	Payments      []Payment       `json:"payments" db:"-"`
}

// SaleItem is a single priced line within a sale. LineTotal is derived from
// quantity, unit price, and discount, never supplied by a caller.
type SaleItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	SaleID          uuid.UUID       `json:"-" db:"sale_id"`
	ItemName        string          `json:"itemName" db:"item_name"`
	Quantity        int64           `json:"quantity" db:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice" db:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount" db:"discount_percent"`
	LineTotal       decimal.Decimal `json:"lineTotal" db:"line_total"`
	LineOrder       int             `json:"-" db:"line_order"`
}

// Payment is one entry in a credit sale's ledger. Entries are append-only:
// corrections are made by recording an offsetting entry, never by mutation.
type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SaleID      uuid.UUID       `json:"-" db:"sale_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"paymentDate" db:"payment_date"`
	Method      PaymentChannel  `json:"paymentMethod" db:"method"`
	BankName    *string         `json:"bankName,omitempty" db:"bank_name"`
	AccountName *string         `json:"accountName,omitempty" db:"account_name"`
	CardNumber  *string         `json:"cardNumber,omitempty" db:"card_number"`
	Notes       *string         `json:"notes,omitempty" db:"notes"`
	RecordedBy  uuid.UUID       `json:"recordedBy" db:"recorded_by"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// IsCredit reports whether the sale carries a payment ledger.
func (s *Sale) IsCredit() bool {
	return s.PaymentMethod == PaymentMethodCredit
}
