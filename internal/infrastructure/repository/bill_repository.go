package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/errors"
	"github.com/racunko/racunko-backend/internal/domain/values"
)

// BillRepository implements bill storage on PostgreSQL. Candidate queries
// return rows ordered oldest created_at first, which the classifier relies
// on when picking among multiple matches.
type BillRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository creates a bill repository over a pgx pool
func NewBillRepository(pool *pgxpool.Pool) *BillRepository {
	return &BillRepository{pool: pool}
}

const billColumns = `
	id, merchant_name, bill_date, amount, currency,
	invoice_number, billing_account_id, billing_period,
	is_cancellation, is_visible, payment_status,
	created_at, updated_at
`

// Create inserts a new bill and fills in its storage-assigned id
func (r *BillRepository) Create(ctx context.Context, b *bill.Bill) error {
	if b.MerchantName == "" {
		return errors.NewValidationError("EMPTY_MERCHANT", "merchant name cannot be empty")
	}

	query := `
		INSERT INTO bills (
			merchant_name, bill_date, amount, currency,
			invoice_number, billing_account_id, billing_period,
			is_cancellation, is_visible, payment_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	err := r.pool.QueryRow(ctx, query,
		b.MerchantName, b.Date, b.TotalAmount.Amount(), b.TotalAmount.Currency(),
		nullIfEmpty(b.InvoiceNumber), nullIfEmpty(b.BillingAccountID), nullIfEmpty(b.BillingPeriod.Token()),
		b.IsCancellation, b.IsVisible, b.PaymentStatus.String(),
		b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)

	if err != nil {
		return errors.NewStorageError("insert", err)
	}

	return nil
}

// Update persists changed fields of an existing bill
func (r *BillRepository) Update(ctx context.Context, b *bill.Bill) error {
	if !b.IsPersisted() {
		return errors.NewValidationError("NOT_PERSISTED", "cannot update a bill without an id")
	}

	query := `
		UPDATE bills SET
			merchant_name = $2, bill_date = $3, amount = $4, currency = $5,
			invoice_number = $6, billing_account_id = $7, billing_period = $8,
			is_cancellation = $9, is_visible = $10, payment_status = $11,
			updated_at = $12
		WHERE id = $1
	`

	b.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx, query,
		b.ID,
		b.MerchantName, b.Date, b.TotalAmount.Amount(), b.TotalAmount.Currency(),
		nullIfEmpty(b.InvoiceNumber), nullIfEmpty(b.BillingAccountID), nullIfEmpty(b.BillingPeriod.Token()),
		b.IsCancellation, b.IsVisible, b.PaymentStatus.String(),
		b.UpdatedAt,
	)
	if err != nil {
		return errors.NewStorageError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrBillNotFound
	}

	return nil
}

// GetByID retrieves a bill by its id
func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`

	b, err := scanBill(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrBillNotFound
		}
		return nil, errors.NewStorageError("lookup", err)
	}
	return b, nil
}

// FindByBillingPeriodAndAmount returns bills sharing the exact billing
// period token with an amount within the absolute tolerance.
func (r *BillRepository) FindByBillingPeriodAndAmount(ctx context.Context, period string, amount values.Money, tolerance decimal.Decimal) ([]*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE billing_period = $1
		  AND currency = $2
		  AND ABS(amount - $3) <= $4
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, period, amount.Currency(), amount.Amount(), tolerance)
	if err != nil {
		return nil, errors.NewStorageError("period+amount query", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// FindInDateRange returns bills dated within [start, end]
func (r *BillRepository) FindInDateRange(ctx context.Context, start, end time.Time) ([]*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE bill_date >= $1 AND bill_date <= $2
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, errors.NewStorageError("date range query", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// FindCancellationsOlderThan returns cancellation bills created before cutoff
func (r *BillRepository) FindCancellationsOlderThan(ctx context.Context, cutoff time.Time) ([]*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE is_cancellation AND created_at < $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, errors.NewStorageError("cancellation query", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// DeleteByIDs removes the given bills
func (r *BillRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `DELETE FROM bills WHERE id = ANY($1)`, ids)
	if err != nil {
		return errors.NewStorageError("delete", err)
	}
	return nil
}

// ReplaceCancellation atomically removes a cancellation placeholder and
// inserts the real bill superseding it.
func (r *BillRepository) ReplaceCancellation(ctx context.Context, placeholderID uuid.UUID, replacement *bill.Bill) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.NewStorageError("begin replace", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM bills WHERE id = $1 AND is_cancellation`, placeholderID)
	if err != nil {
		return errors.NewStorageError("placeholder delete", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewConflictError(
			fmt.Sprintf("cancellation placeholder %s no longer exists", placeholderID))
	}

	now := time.Now().UTC()
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = now
	}
	replacement.UpdatedAt = now

	err = tx.QueryRow(ctx, `
		INSERT INTO bills (
			merchant_name, bill_date, amount, currency,
			invoice_number, billing_account_id, billing_period,
			is_cancellation, is_visible, payment_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		replacement.MerchantName, replacement.Date,
		replacement.TotalAmount.Amount(), replacement.TotalAmount.Currency(),
		nullIfEmpty(replacement.InvoiceNumber), nullIfEmpty(replacement.BillingAccountID),
		nullIfEmpty(replacement.BillingPeriod.Token()),
		replacement.IsCancellation, replacement.IsVisible, replacement.PaymentStatus.String(),
		replacement.CreatedAt, replacement.UpdatedAt,
	).Scan(&replacement.ID)
	if err != nil {
		return errors.NewStorageError("replacement insert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStorageError("commit replace", err)
	}
	return nil
}

// scanBill maps one row onto a Bill
func scanBill(row pgx.Row) (*bill.Bill, error) {
	var (
		b             bill.Bill
		amount        decimal.Decimal
		currency      string
		invoiceNumber *string
		accountID     *string
		periodToken   *string
		statusStr     string
	)

	err := row.Scan(
		&b.ID, &b.MerchantName, &b.Date, &amount, &currency,
		&invoiceNumber, &accountID, &periodToken,
		&b.IsCancellation, &b.IsVisible, &statusStr,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.TotalAmount, err = values.NewMoney(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("stored amount is invalid: %w", err)
	}

	b.PaymentStatus, err = bill.ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("stored status is invalid: %w", err)
	}

	if invoiceNumber != nil {
		b.InvoiceNumber = *invoiceNumber
	}
	if accountID != nil {
		b.BillingAccountID = *accountID
	}
	if periodToken != nil {
		b.BillingPeriod, err = values.ParseBillingPeriod(*periodToken)
		if err != nil {
			return nil, fmt.Errorf("stored billing period is invalid: %w", err)
		}
	}

	return &b, nil
}

func collectBills(rows pgx.Rows) ([]*bill.Bill, error) {
	var bills []*bill.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, errors.NewStorageError("row scan", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("row iteration", err)
	}
	return bills, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
