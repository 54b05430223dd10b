package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	inventorymodel "storefront-backend/internal/domains/inventory/model"
	ordermodel "storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/refund/model"
)

// =====================================================
// IN-MEMORY FAKES
// =====================================================

// fakeRefundRepo mirrors the conditional-update semantics of the postgres
// repository over in-memory maps.
type fakeRefundRepo struct {
	refunds map[uuid.UUID]*model.RefundRequest
	lines   map[uuid.UUID][]model.RefundLineItem

	// Per-order fixtures for the validation reads.
	refundedQty   map[uuid.UUID]int
	refundedTotal int64

	// Order fixture joined into settlement snapshots.
	order *ordermodel.Order

	createErr error
}

func newFakeRefundRepo(order *ordermodel.Order) *fakeRefundRepo {
	return &fakeRefundRepo{
		refunds:     map[uuid.UUID]*model.RefundRequest{},
		lines:       map[uuid.UUID][]model.RefundLineItem{},
		refundedQty: map[uuid.UUID]int{},
		order:       order,
	}
}

func (f *fakeRefundRepo) add(refund *model.RefundRequest) {
	f.refunds[refund.ID] = refund
	f.lines[refund.ID] = refund.LineItems
}

func (f *fakeRefundRepo) Create(ctx context.Context, refund *model.RefundRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	refund.CreatedAt = time.Now()
	refund.UpdatedAt = refund.CreatedAt
	f.add(refund)
	return nil
}

func (f *fakeRefundRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	refund, exists := f.refunds[id]
	if !exists {
		return nil, model.ErrRefundNotFound
	}
	copied := *refund
	return &copied, nil
}

func (f *fakeRefundRepo) GetByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*model.RefundRequest, error) {
	for _, refund := range f.refunds {
		if refund.GatewayRefundID != nil && *refund.GatewayRefundID == gatewayRefundID {
			copied := *refund
			return &copied, nil
		}
	}
	return nil, model.ErrRefundNotFound
}

func (f *fakeRefundRepo) GetLineItems(ctx context.Context, id uuid.UUID) ([]model.RefundLineItem, error) {
	return f.lines[id], nil
}

func (f *fakeRefundRepo) List(ctx context.Context, status string, limit, offset int) ([]model.RefundRequest, int64, error) {
	var out []model.RefundRequest
	for _, refund := range f.refunds {
		if status == "" || refund.Status == status {
			out = append(out, *refund)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRefundRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundRequest, error) {
	var out []model.RefundRequest
	for _, refund := range f.refunds {
		if refund.OrderID == orderID {
			out = append(out, *refund)
		}
	}
	return out, nil
}

func (f *fakeRefundRepo) RefundedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	return f.refundedQty, nil
}

func (f *fakeRefundRepo) RefundedAmountTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return f.refundedTotal, nil
}

func (f *fakeRefundRepo) transition(id uuid.UUID, allowed []string, apply func(*model.RefundRequest)) error {
	refund, exists := f.refunds[id]
	if !exists {
		return model.NewRefundNotFoundError(id.String())
	}
	for _, status := range allowed {
		if refund.Status == status && refund.DeletedAt == nil {
			apply(refund)
			refund.UpdatedAt = time.Now()
			return nil
		}
	}
	return model.NewRefundConflictError(refund.Status)
}

func (f *fakeRefundRepo) Approve(ctx context.Context, id uuid.UUID) error {
	return f.transition(id, []string{model.RefundStatusPending}, func(r *model.RefundRequest) {
		r.Status = model.RefundStatusApproved
	})
}

func (f *fakeRefundRepo) Reject(ctx context.Context, id uuid.UUID, reason *string) error {
	return f.transition(id, []string{model.RefundStatusPending}, func(r *model.RefundRequest) {
		r.Status = model.RefundStatusRejected
		appendNote(r, reason)
	})
}

func (f *fakeRefundRepo) Cancel(ctx context.Context, id uuid.UUID, expectedStatus string) error {
	return f.transition(id, []string{expectedStatus}, func(r *model.RefundRequest) {
		now := time.Now()
		r.Status = model.RefundStatusCancelled
		r.DeletedAt = &now
	})
}

func (f *fakeRefundRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return f.transition(id, []string{model.RefundStatusApproved, model.RefundStatusFailed}, func(r *model.RefundRequest) {
		r.Status = model.RefundStatusFailed
		appendNote(r, &message)
	})
}

func (f *fakeRefundRepo) SetGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error {
	refund, exists := f.refunds[id]
	if !exists {
		return model.NewRefundNotFoundError(id.String())
	}
	if refund.GatewayRefundID == nil {
		refund.GatewayRefundID = &gatewayRefundID
	}
	return nil
}

func (f *fakeRefundRepo) GetForSettlementTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.SettlementSnapshot, error) {
	refund, exists := f.refunds[id]
	if !exists {
		return nil, model.ErrRefundNotFound
	}

	var otherCompleted int64
	for _, other := range f.refunds {
		if other.ID != id && other.OrderID == refund.OrderID && other.Status == model.RefundStatusCompleted {
			otherCompleted += other.Amount
		}
	}

	copied := *refund
	copied.LineItems = f.lines[id]
	return &model.SettlementSnapshot{
		Refund:              &copied,
		LineItems:           copied.LineItems,
		OrderTotal:          f.order.TotalAmount,
		PaymentIntentID:     f.order.PaymentIntentID,
		ChargeID:            f.order.ChargeID,
		CustomerEmail:       f.order.CustomerEmail,
		OrderNumber:         f.order.OrderNumber,
		OtherCompletedTotal: otherCompleted,
	}, nil
}

func (f *fakeRefundRepo) MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, gatewayRefundID *string, processedAt time.Time) error {
	return f.transition(id, []string{model.RefundStatusApproved, model.RefundStatusFailed}, func(r *model.RefundRequest) {
		r.Status = model.RefundStatusCompleted
		r.ProcessedAt = &processedAt
		if r.GatewayRefundID == nil {
			r.GatewayRefundID = gatewayRefundID
		}
	})
}

func appendNote(r *model.RefundRequest, note *string) {
	if note == nil {
		return
	}
	if r.Note == nil {
		r.Note = note
		return
	}
	combined := *r.Note + "\n" + *note
	r.Note = &combined
}

// fakeOrderRepo serves a single order fixture.
type fakeOrderRepo struct {
	order       *ordermodel.Order
	orderLines  []ordermodel.OrderLineItem
	paymentLog  []string
	updateErr   error
	getErr      error
	lineItemErr error
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*ordermodel.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.order == nil || f.order.ID != id {
		return nil, ordermodel.ErrOrderNotFound
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeOrderRepo) GetLineItems(ctx context.Context, orderID uuid.UUID) ([]ordermodel.OrderLineItem, error) {
	if f.lineItemErr != nil {
		return nil, f.lineItemErr
	}
	return f.orderLines, nil
}

func (f *fakeOrderRepo) UpdatePaymentStatusTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.order.PaymentStatus = status
	f.paymentLog = append(f.paymentLog, status)
	return nil
}

// fakeInventoryRepo records restock increments.
type fakeInventoryRepo struct {
	increments map[uuid.UUID]int
	incErr     error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{increments: map[uuid.UUID]int{}}
}

func (f *fakeInventoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*inventorymodel.Inventory, error) {
	return nil, inventorymodel.ErrInventoryNotFound
}

func (f *fakeInventoryRepo) IncrementAvailableTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.increments[id] += quantity
	return nil
}

// fakeTxManager counts transaction boundaries; the nil pgx.Tx is never
// dereferenced because the fakes ignore it.
type fakeTxManager struct {
	begins    int
	commits   int
	rollbacks int
	beginErr  error
}

func (f *fakeTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begins++
	return nil, nil
}

func (f *fakeTxManager) CommitTx(ctx context.Context, tx pgx.Tx) error {
	f.commits++
	return nil
}

func (f *fakeTxManager) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	f.rollbacks++
	return nil
}

// fakeNotifier records enqueued notifications.
type fakeNotifier struct {
	approved []model.RefundApprovedEmailPayload
	rejected []model.RefundRejectedEmailPayload
	err      error
}

func (f *fakeNotifier) EnqueueRefundApprovedEmail(payload model.RefundApprovedEmailPayload) error {
	if f.err != nil {
		return f.err
	}
	f.approved = append(f.approved, payload)
	return nil
}

func (f *fakeNotifier) EnqueueRefundRejectedEmail(payload model.RefundRejectedEmailPayload) error {
	if f.err != nil {
		return f.err
	}
	f.rejected = append(f.rejected, payload)
	return nil
}

// fakeInvalidator records invalidated tags.
type fakeInvalidator struct {
	tags []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, tags ...string) {
	f.tags = append(f.tags, tags...)
}

// =====================================================
// FIXTURES
// =====================================================

func strPtr(s string) *string { return &s }

func testOrder() (*ordermodel.Order, []ordermodel.OrderLineItem) {
	orderID := uuid.New()
	order := &ordermodel.Order{
		ID:              orderID,
		OrderNumber:     "ORD-1001",
		CustomerEmail:   "customer@example.com",
		TotalAmount:     10000,
		Currency:        "usd",
		PaymentIntentID: strPtr("pi_test_123"),
		ChargeID:        strPtr("ch_test_123"),
		PaymentStatus:   ordermodel.PaymentStatusPaid,
	}

	lines := []ordermodel.OrderLineItem{
		{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), InventoryID: uuid.New(), Quantity: 2, UnitAmount: 3000},
		{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), InventoryID: uuid.New(), Quantity: 4, UnitAmount: 1000},
	}
	return order, lines
}

func approvedRefund(order *ordermodel.Order, orderLines []ordermodel.OrderLineItem, amount int64, restock bool) *model.RefundRequest {
	id := uuid.New()
	return &model.RefundRequest{
		ID:      id,
		OrderID: order.ID,
		Amount:  amount,
		Reason:  model.ReasonCustomerRequest,
		Status:  model.RefundStatusApproved,
		LineItems: []model.RefundLineItem{
			{
				ID:              uuid.New(),
				RefundRequestID: id,
				OrderLineItemID: orderLines[0].ID,
				InventoryID:     orderLines[0].InventoryID,
				ProductID:       orderLines[0].ProductID,
				Quantity:        1,
				Amount:          amount,
				Restock:         restock,
			},
		},
	}
}
