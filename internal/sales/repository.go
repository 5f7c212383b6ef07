package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/platform/db"
)

// Repository defines sale persistence. The sale row carries a version column;
// every write that touches derived state is conditioned on it so concurrent
// ledger appends against the same sale cannot lose an update.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
	Create(ctx context.Context, sale *Sale) error
	// Update replaces the sale row and its items atomically. Returns
	// errVersionConflict when expectedVersion no longer matches.
	Update(ctx context.Context, sale *Sale, expectedVersion int64) error
	// AppendPayment inserts the payment and writes the re-derived credit
	// status in one transaction, conditioned on expectedVersion.
	AppendPayment(ctx context.Context, saleID uuid.UUID, payment *Payment, creditStatus CreditStatus, expectedVersion int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed sale repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// classifyWriteError maps a postgres serialization failure (SQLSTATE 40001)
// onto the version-conflict sentinel. A write that loses a live race then
// takes the same retry path as one that read a stale snapshot, regardless of
// the transaction isolation level in effect.
func classifyWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return errVersionConflict
	}
	return err
}

const saleColumns = `id, customer_name, customer_email, customer_phone, client_id, agent_id,
	subtotal, discount_total, final_amount, payment_method, status, sale_date,
	due_date, credit_status, notes, version, created_at, updated_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.CustomerName, &s.CustomerEmail, &s.CustomerPhone, &s.ClientID, &s.AgentID,
		&s.Subtotal, &s.DiscountTotal, &s.FinalAmount, &s.PaymentMethod, &s.Status, &s.SaleDate,
		&s.DueDate, &s.CreditStatus, &s.Notes, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	sale, err := scanSale(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	payments, err := r.getPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Payments = payments

	return sale, nil
}

func (r *repository) getItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	query := `
		SELECT id, sale_id, item_name, quantity, unit_price, discount_percent, line_total, line_order
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY line_order
	`
	rows, err := r.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ItemName, &it.Quantity, &it.UnitPrice,
			&it.DiscountPercent, &it.LineTotal, &it.LineOrder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) getPayments(ctx context.Context, saleID uuid.UUID) ([]Payment, error) {
	query := `
		SELECT id, sale_id, amount, payment_date, method, bank_name, account_name,
		       card_number, notes, recorded_by, created_at
		FROM sale_payments
		WHERE sale_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.PaymentDate, &p.Method,
			&p.BankName, &p.AccountName, &p.CardNumber, &p.Notes, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	appendCond := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}

	if req.PaymentMethod != nil {
		appendCond("payment_method = $%d", *req.PaymentMethod)
	}
	if req.Status != nil {
		appendCond("status = $%d", *req.Status)
	}
	if req.CreditStatus != nil {
		appendCond("credit_status = $%d", *req.CreditStatus)
	}
	if req.ClientID != nil {
		appendCond("client_id = $%d", *req.ClientID)
	}
	if req.AgentID != nil {
		appendCond("agent_id = $%d", *req.AgentID)
	}
	if req.DateFrom != nil {
		appendCond("sale_date >= $%d", *req.DateFrom)
	}
	if req.DateTo != nil {
		appendCond("sale_date <= $%d", *req.DateTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM sales " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(
		"SELECT "+saleColumns+" FROM sales %s ORDER BY sale_date DESC, created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, argPos, argPos+1,
	)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadChildren(ctx, sales); err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

// loadChildren batches the item and payment loads for a listing page.
func (r *repository) loadChildren(ctx context.Context, sales []Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(sales))
	index := make(map[uuid.UUID]*Sale, len(sales))
	for i := range sales {
		ids = append(ids, sales[i].ID)
		index[sales[i].ID] = &sales[i]
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, item_name, quantity, unit_price, discount_percent, line_total, line_order
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, line_order`, ids)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it SaleItem
		if err := itemRows.Scan(&it.ID, &it.SaleID, &it.ItemName, &it.Quantity, &it.UnitPrice,
			&it.DiscountPercent, &it.LineTotal, &it.LineOrder); err != nil {
			return err
		}
		if s, ok := index[it.SaleID]; ok {
			s.Items = append(s.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	payRows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, amount, payment_date, method, bank_name, account_name,
		       card_number, notes, recorded_by, created_at
		FROM sale_payments WHERE sale_id = ANY($1) ORDER BY sale_id, created_at, id`, ids)
	if err != nil {
		return err
	}
	defer payRows.Close()
	for payRows.Next() {
		var p Payment
		if err := payRows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.PaymentDate, &p.Method,
			&p.BankName, &p.AccountName, &p.CardNumber, &p.Notes, &p.RecordedBy, &p.CreatedAt); err != nil {
			return err
		}
		if s, ok := index[p.SaleID]; ok {
			s.Payments = append(s.Payments, p)
		}
	}
	return payRows.Err()
}

func (r *repository) Create(ctx context.Context, sale *Sale) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO sales (id, customer_name, customer_email, customer_phone, client_id, agent_id,
				subtotal, discount_total, final_amount, payment_method, status, sale_date,
				due_date, credit_status, notes, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
			RETURNING version, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			sale.ID, sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone, sale.ClientID, sale.AgentID,
			sale.Subtotal, sale.DiscountTotal, sale.FinalAmount, sale.PaymentMethod, sale.Status, sale.SaleDate,
			sale.DueDate, sale.CreditStatus, sale.Notes,
		).Scan(&sale.Version, &sale.CreatedAt, &sale.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		return insertItems(ctx, tx, sale.ID, sale.Items)
	})
}

func (r *repository) Update(ctx context.Context, sale *Sale, expectedVersion int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE sales SET
				customer_name = $1, customer_email = $2, customer_phone = $3, client_id = $4,
				subtotal = $5, discount_total = $6, final_amount = $7, status = $8,
				due_date = $9, credit_status = $10, notes = $11,
				version = version + 1, updated_at = NOW()
			WHERE id = $12 AND version = $13
		`
		tag, err := tx.Exec(ctx, query,
			sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone, sale.ClientID,
			sale.Subtotal, sale.DiscountTotal, sale.FinalAmount, sale.Status,
			sale.DueDate, sale.CreditStatus, sale.Notes,
			sale.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update sale: %w", classifyWriteError(err))
		}
		if tag.RowsAffected() == 0 {
			return errVersionConflict
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID); err != nil {
			return fmt.Errorf("delete sale items: %w", err)
		}
		return insertItems(ctx, tx, sale.ID, sale.Items)
	})
}

func (r *repository) AppendPayment(ctx context.Context, saleID uuid.UUID, payment *Payment, creditStatus CreditStatus, expectedVersion int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO sale_payments (id, sale_id, amount, payment_date, method,
				bank_name, account_name, card_number, notes, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			payment.ID, saleID, payment.Amount, payment.PaymentDate, payment.Method,
			payment.BankName, payment.AccountName, payment.CardNumber, payment.Notes, payment.RecordedBy,
		).Scan(&payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment: %w", classifyWriteError(err))
		}

		tag, err := tx.Exec(ctx, `
			UPDATE sales SET credit_status = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3`,
			creditStatus, saleID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update credit status: %w", classifyWriteError(err))
		}
		if tag.RowsAffected() == 0 {
			return errVersionConflict
		}
		return nil
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, saleID uuid.UUID, items []SaleItem) error {
	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.SaleID = saleID
		_, err := tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, item_name, quantity, unit_price, discount_percent, line_total, line_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, saleID, item.ItemName, item.Quantity, item.UnitPrice,
			item.DiscountPercent, item.LineTotal, item.LineOrder,
		)
		if err != nil {
			return fmt.Errorf("insert sale item %d: %w", i+1, err)
		}
	}
	return nil
}
