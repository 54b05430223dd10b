package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/pkg/database"
)

// openStatuses are the statuses that reserve refundable quantity and amount
// on the order. Failed stays open because it is retry-eligible.
const openStatusesCondition = `status IN ('pending', 'approved', 'completed', 'failed')`

type refundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) RefundRepoInterface {
	return &refundRepository{pool: pool}
}

// =====================================================
// CREATE
// =====================================================

// Create inserts the refund request and its line items in one transaction.
func (r *refundRepository) Create(ctx context.Context, refund *model.RefundRequest) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO refund_requests (
				id, order_id, amount, reason, note, status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			refund.ID,
			refund.OrderID,
			refund.Amount,
			refund.Reason,
			refund.Note,
			refund.Status,
		).Scan(&refund.CreatedAt, &refund.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert refund request: %w", err)
		}

		lineQuery := `
			INSERT INTO refund_line_items (
				id, refund_request_id, order_line_item_id,
				inventory_id, product_id, quantity, amount, restock
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		for i := range refund.LineItems {
			line := &refund.LineItems[i]
			line.RefundRequestID = refund.ID
			_, err := tx.Exec(ctx, lineQuery,
				line.ID,
				line.RefundRequestID,
				line.OrderLineItemID,
				line.InventoryID,
				line.ProductID,
				line.Quantity,
				line.Amount,
				line.Restock,
			)
			if err != nil {
				return fmt.Errorf("failed to insert refund line item: %w", err)
			}
		}

		return nil
	})
}

// =====================================================
// READS
// =====================================================

const refundColumns = `
	id, order_id, amount, reason, note, status,
	gateway_refund_id, processed_at, deleted_at, created_at, updated_at
`

func scanRefund(row pgx.Row, refund *model.RefundRequest) error {
	return row.Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.Amount,
		&refund.Reason,
		&refund.Note,
		&refund.Status,
		&refund.GatewayRefundID,
		&refund.ProcessedAt,
		&refund.DeletedAt,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
}

// GetByID gets refund request by ID (soft-deleted rows included: cancelled
// requests stay readable).
func (r *refundRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1`

	refund := &model.RefundRequest{}
	err := scanRefund(r.pool.QueryRow(ctx, query, id), refund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund request: %w", err)
	}

	return refund, nil
}

// GetByGatewayRefundID gets refund request by the gateway's refund id.
func (r *refundRepository) GetByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*model.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE gateway_refund_id = $1`

	refund := &model.RefundRequest{}
	err := scanRefund(r.pool.QueryRow(ctx, query, gatewayRefundID), refund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund request by gateway id: %w", err)
	}

	return refund, nil
}

// GetLineItems gets all line items of a refund request
func (r *refundRepository) GetLineItems(ctx context.Context, refundRequestID uuid.UUID) ([]model.RefundLineItem, error) {
	query := `
		SELECT id, refund_request_id, order_line_item_id,
			inventory_id, product_id, quantity, amount, restock
		FROM refund_line_items
		WHERE refund_request_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, refundRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refund line items: %w", err)
	}
	defer rows.Close()

	return scanLineItems(rows)
}

func scanLineItems(rows pgx.Rows) ([]model.RefundLineItem, error) {
	var items []model.RefundLineItem
	for rows.Next() {
		var item model.RefundLineItem
		err := rows.Scan(
			&item.ID,
			&item.RefundRequestID,
			&item.OrderLineItemID,
			&item.InventoryID,
			&item.ProductID,
			&item.Quantity,
			&item.Amount,
			&item.Restock,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns refund requests filtered by status, newest first.
func (r *refundRepository) List(ctx context.Context, status string, limit, offset int) ([]model.RefundRequest, int64, error) {
	type refundPage struct {
		refunds []model.RefundRequest
		total   int64
	}

	// Count and page are read in one transaction so the total matches
	// the rows.
	page, err := database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (refundPage, error) {
		var p refundPage

		countQuery := `SELECT COUNT(*) FROM refund_requests WHERE ($1 = '' OR status = $1)`
		if err := tx.QueryRow(ctx, countQuery, status).Scan(&p.total); err != nil {
			return p, fmt.Errorf("failed to count refund requests: %w", err)
		}

		query := `
			SELECT ` + refundColumns + `
			FROM refund_requests
			WHERE ($1 = '' OR status = $1)
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`

		rows, err := tx.Query(ctx, query, status, limit, offset)
		if err != nil {
			return p, fmt.Errorf("failed to list refund requests: %w", err)
		}
		defer rows.Close()

		p.refunds, err = scanRefunds(rows)
		return p, err
	})
	if err != nil {
		return nil, 0, err
	}
	return page.refunds, page.total, nil
}

// ListByOrder returns all refund requests against an order, oldest first.
func (r *refundRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundRequest, error) {
	query := `
		SELECT ` + refundColumns + `
		FROM refund_requests
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refund requests by order: %w", err)
	}
	defer rows.Close()

	return scanRefunds(rows)
}

func scanRefunds(rows pgx.Rows) ([]model.RefundRequest, error) {
	var refunds []model.RefundRequest
	for rows.Next() {
		var refund model.RefundRequest
		if err := scanRefund(rows, &refund); err != nil {
			return nil, fmt.Errorf("failed to scan refund request: %w", err)
		}
		refunds = append(refunds, refund)
	}
	return refunds, rows.Err()
}

// RefundedQuantities sums refunded quantity per order line item across the
// order's open and completed refund requests.
func (r *refundRepository) RefundedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT li.order_line_item_id, COALESCE(SUM(li.quantity), 0)
		FROM refund_line_items li
		JOIN refund_requests rr ON rr.id = li.refund_request_id
		WHERE rr.order_id = $1 AND rr.` + openStatusesCondition + `
		GROUP BY li.order_line_item_id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum refunded quantities: %w", err)
	}
	defer rows.Close()

	quantities := make(map[uuid.UUID]int)
	for rows.Next() {
		var lineItemID uuid.UUID
		var quantity int
		if err := rows.Scan(&lineItemID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan refunded quantity: %w", err)
		}
		quantities[lineItemID] = quantity
	}
	return quantities, rows.Err()
}

// RefundedAmountTotal sums the amounts of the order's open and completed
// refund requests.
func (r *refundRepository) RefundedAmountTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM refund_requests
		WHERE order_id = $1 AND ` + openStatusesCondition

	var total int64
	if err := r.pool.QueryRow(ctx, query, orderID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum refunded amount: %w", err)
	}
	return total, nil
}

// =====================================================
// STATUS TRANSITIONS (conditional updates)
// =====================================================

// Approve transitions pending -> approved.
func (r *refundRepository) Approve(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE refund_requests
		SET status = 'approved',
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to approve refund request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyConditionalFailure(ctx, id)
	}
	return nil
}

// Reject transitions pending -> rejected, appending the rejection reason to
// the note when given.
func (r *refundRepository) Reject(ctx context.Context, id uuid.UUID, reason *string) error {
	query := `
		UPDATE refund_requests
		SET status = 'rejected',
			note = CASE
				WHEN $2::text IS NULL THEN note
				WHEN note IS NULL THEN $2
				ELSE note || E'\n' || $2
			END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to reject refund request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyConditionalFailure(ctx, id)
	}
	return nil
}

// Cancel soft-deletes the request: the row is retained for accounting and
// excluded from quantity/amount reservation.
func (r *refundRepository) Cancel(ctx context.Context, id uuid.UUID, expectedStatus string) error {
	query := `
		UPDATE refund_requests
		SET status = 'cancelled',
			deleted_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, expectedStatus)
	if err != nil {
		return fmt.Errorf("failed to cancel refund request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyConditionalFailure(ctx, id)
	}
	return nil
}

// MarkFailed transitions approved -> failed, recording the gateway's message
// in the note for the operator. A retried settlement that fails again keeps
// appending, so the note preserves the failure history.
func (r *refundRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE refund_requests
		SET status = 'failed',
			note = CASE
				WHEN note IS NULL THEN $2
				ELSE note || E'\n' || $2
			END,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('approved', 'failed') AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark refund request failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyConditionalFailure(ctx, id)
	}
	return nil
}

// SetGatewayRefundID records the gateway refund id; COALESCE keeps the first
// recorded id immutable.
func (r *refundRepository) SetGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error {
	query := `
		UPDATE refund_requests
		SET gateway_refund_id = COALESCE(gateway_refund_id, $2),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, gatewayRefundID)
	if err != nil {
		return fmt.Errorf("failed to set gateway refund id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.NewRefundNotFoundError(id.String())
	}
	return nil
}

// classifyConditionalFailure distinguishes a missing row from a concurrent
// status change after a conditional update affected zero rows. Both cases
// come back as typed errors so callers can surface them directly; the
// wrapped sentinels keep errors.Is working for the bulk paths.
func (r *refundRepository) classifyConditionalFailure(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM refund_requests WHERE id = $1`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewRefundNotFoundError(id.String())
		}
		return fmt.Errorf("failed to re-read refund request: %w", err)
	}
	return model.NewRefundConflictError(status)
}

// =====================================================
// SETTLEMENT (transactional)
// =====================================================

// GetForSettlementTx locks the refund row and reads the consistent snapshot
// settlement validates against. Only the refund row is locked; the order is
// read without a lock since settlement never races on order columns other
// than payment_status, which is recomputed in the finalization update.
func (r *refundRepository) GetForSettlementTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
) (*model.SettlementSnapshot, error) {
	query := `
		SELECT
			rr.id, rr.order_id, rr.amount, rr.reason, rr.note, rr.status,
			rr.gateway_refund_id, rr.processed_at, rr.deleted_at,
			rr.created_at, rr.updated_at,
			o.total_amount, o.payment_intent_id, o.charge_id,
			o.customer_email, o.order_number
		FROM refund_requests rr
		JOIN orders o ON o.id = rr.order_id
		WHERE rr.id = $1
		FOR UPDATE OF rr
	`

	snapshot := &model.SettlementSnapshot{Refund: &model.RefundRequest{}}
	refund := snapshot.Refund
	err := tx.QueryRow(ctx, query, id).Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.Amount,
		&refund.Reason,
		&refund.Note,
		&refund.Status,
		&refund.GatewayRefundID,
		&refund.ProcessedAt,
		&refund.DeletedAt,
		&refund.CreatedAt,
		&refund.UpdatedAt,
		&snapshot.OrderTotal,
		&snapshot.PaymentIntentID,
		&snapshot.ChargeID,
		&snapshot.CustomerEmail,
		&snapshot.OrderNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to lock refund request for settlement: %w", err)
	}

	lineQuery := `
		SELECT id, refund_request_id, order_line_item_id,
			inventory_id, product_id, quantity, amount, restock
		FROM refund_line_items
		WHERE refund_request_id = $1
		ORDER BY id ASC
	`
	rows, err := tx.Query(ctx, lineQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read refund line items for settlement: %w", err)
	}
	defer rows.Close()

	snapshot.LineItems, err = scanLineItems(rows)
	if err != nil {
		return nil, err
	}
	refund.LineItems = snapshot.LineItems

	sumQuery := `
		SELECT COALESCE(SUM(amount), 0)
		FROM refund_requests
		WHERE order_id = $1 AND status = 'completed' AND id <> $2
	`
	err = tx.QueryRow(ctx, sumQuery, refund.OrderID, id).Scan(&snapshot.OtherCompletedTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed refunds for order: %w", err)
	}

	return snapshot, nil
}

// MarkCompletedTx transitions approved/failed -> completed inside the
// settlement transaction. The status condition still applies: a row already
// completed by a concurrent finalizer affects zero rows.
func (r *refundRepository) MarkCompletedTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	gatewayRefundID *string,
	processedAt time.Time,
) error {
	query := `
		UPDATE refund_requests
		SET status = 'completed',
			gateway_refund_id = COALESCE(gateway_refund_id, $2),
			processed_at = $3,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('approved', 'failed') AND deleted_at IS NULL
	`

	result, err := tx.Exec(ctx, query, id, gatewayRefundID, processedAt)
	if err != nil {
		return fmt.Errorf("failed to mark refund request completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRefundConflict
	}
	return nil
}
