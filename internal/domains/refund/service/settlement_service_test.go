package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordermodel "storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/refund/gateway"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/internal/domains/refund/gateway/mock"
	"storefront-backend/internal/domains/refund/model"
)

type settlementFixture struct {
	refundRepo    *fakeRefundRepo
	orderRepo     *fakeOrderRepo
	inventoryRepo *fakeInventoryRepo
	txManager     *fakeTxManager
	gateway       *mock.MockRefundGateway
	invalidator   *fakeInvalidator
	svc           SettlementServiceInterface
}

func newSettlementFixture() *settlementFixture {
	order, orderLines := testOrder()
	f := &settlementFixture{
		refundRepo:    newFakeRefundRepo(order),
		orderRepo:     &fakeOrderRepo{order: order, orderLines: orderLines},
		inventoryRepo: newFakeInventoryRepo(),
		txManager:     &fakeTxManager{},
		gateway:       mock.NewMockRefundGateway(),
		invalidator:   &fakeInvalidator{},
	}
	f.svc = NewSettlementService(
		f.refundRepo,
		f.orderRepo,
		f.inventoryRepo,
		f.txManager,
		f.gateway,
		f.invalidator,
	)
	return f
}

func TestProcessSettlementCompletes(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	f.refundRepo.add(refund)

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomeCompleted, result.Outcome)
	require.NotNil(t, result.GatewayRefundID)
	require.NotNil(t, result.ProcessedAt)

	stored := f.refundRepo.refunds[refund.ID]
	assert.Equal(t, model.RefundStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, *result.GatewayRefundID, *stored.GatewayRefundID)

	// Restock flagged line items
	inventoryID := refund.LineItems[0].InventoryID
	assert.Equal(t, 1, f.inventoryRepo.increments[inventoryID])

	// Restocked settlement touches the inventory and product caches too.
	assert.ElementsMatch(t, []string{
		cache.TagOrderRefunds,
		cache.TagOrderList,
		cache.TagAdminBadges,
		cache.TagDashboardKPIs,
		cache.TagDashboardOrders,
		cache.TagRevenue,
		cache.TagStock + ":" + inventoryID.String(),
		cache.TagProductDetail + ":" + refund.LineItems[0].ProductID.String(),
		cache.TagInventoryList,
	}, f.invalidator.tags)

	// Partial refund of a 10000 order
	assert.Equal(t, []string{ordermodel.PaymentStatusPartiallyRefunded}, f.orderRepo.paymentLog)

	// One gateway call with the deterministic idempotency key and mapped reason
	require.Equal(t, 1, f.gateway.CallCount())
	call := f.gateway.Calls[0]
	assert.Equal(t, IdempotencyKey(refund.ID), call.IdempotencyKey)
	assert.Equal(t, "requested_by_customer", call.Reason)
	assert.Equal(t, int64(3000), call.Amount)
	assert.Equal(t, "pi_test_123", call.PaymentIntentID)
	assert.Equal(t, refund.ID.String(), call.Metadata["refund_request_id"])

	// Phase 1 + Phase 3, no lock held across the gateway call
	assert.Equal(t, 2, f.txManager.begins)
	assert.Equal(t, 2, f.txManager.commits)
}

func TestProcessSettlementFullRefundFlipsPaymentStatus(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	// A previously completed 4000 refund plus this 6000 one covers the
	// whole 10000 order.
	earlier := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 4000, false)
	earlier.Status = model.RefundStatusCompleted
	f.refundRepo.add(earlier)

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 6000, false)
	f.refundRepo.add(refund)

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomeCompleted, result.Outcome)
	assert.Equal(t, []string{ordermodel.PaymentStatusRefunded}, f.orderRepo.paymentLog)
}

func TestProcessSettlementSkipsRestockWhenNotFlagged(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, false)
	f.refundRepo.add(refund)

	_, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Empty(t, f.inventoryRepo.increments)

	// No stock moved, so the inventory and product caches stay warm.
	assert.ElementsMatch(t, []string{
		cache.TagOrderRefunds,
		cache.TagOrderList,
		cache.TagAdminBadges,
		cache.TagDashboardKPIs,
		cache.TagDashboardOrders,
		cache.TagRevenue,
	}, f.invalidator.tags)
}

func TestProcessSettlementStatusGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("completed refund is already processed", func(t *testing.T) {
		f := newSettlementFixture()
		refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
		refund.Status = model.RefundStatusCompleted
		f.refundRepo.add(refund)

		_, err := f.svc.ProcessSettlement(ctx, refund.ID)
		requireRefundErrCode(t, err, model.ErrCodeAlreadyProcessed)
		assert.Zero(t, f.gateway.CallCount(), "no gateway call for a settled refund")
	})

	t.Run("pending refund is not settleable", func(t *testing.T) {
		f := newSettlementFixture()
		refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
		refund.Status = model.RefundStatusPending
		f.refundRepo.add(refund)

		_, err := f.svc.ProcessSettlement(ctx, refund.ID)
		requireRefundErrCode(t, err, model.ErrCodeNotApproved)
		assert.Zero(t, f.gateway.CallCount())
	})

	t.Run("unknown refund", func(t *testing.T) {
		f := newSettlementFixture()
		refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)

		_, err := f.svc.ProcessSettlement(ctx, refund.ID)
		requireRefundErrCode(t, err, model.ErrCodeRefundNotFound)
	})

	t.Run("order without payment references", func(t *testing.T) {
		f := newSettlementFixture()
		f.orderRepo.order.PaymentIntentID = nil
		f.orderRepo.order.ChargeID = nil
		f.refundRepo.order = f.orderRepo.order

		refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
		f.refundRepo.add(refund)

		_, err := f.svc.ProcessSettlement(ctx, refund.ID)
		requireRefundErrCode(t, err, model.ErrCodeNoChargeReference)
		assert.Zero(t, f.gateway.CallCount())
	})
}

func TestProcessSettlementGatewayFailure(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	f.refundRepo.add(refund)

	f.gateway.NextResult = &gateway.RefundResult{
		State:   gateway.StateFailed,
		Message: "insufficient funds on platform account",
	}

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err, "a gateway failure is an outcome, not an error")

	assert.Equal(t, model.SettlementOutcomeFailed, result.Outcome)
	assert.Equal(t, "insufficient funds on platform account", result.Message)

	stored := f.refundRepo.refunds[refund.ID]
	assert.Equal(t, model.RefundStatusFailed, stored.Status)
	require.NotNil(t, stored.Note)
	assert.Contains(t, *stored.Note, "insufficient funds")
	assert.Empty(t, f.inventoryRepo.increments, "no restock on failure")
	assert.Empty(t, f.orderRepo.paymentLog, "payment status untouched on failure")

	// Failed is retry-eligible: a second invocation completes.
	retry, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementOutcomeCompleted, retry.Outcome)
	assert.Equal(t, model.RefundStatusCompleted, f.refundRepo.refunds[refund.ID].Status)
}

func TestProcessSettlementTransportError(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	f.refundRepo.add(refund)

	f.gateway.NextErr = errors.New("connection reset by peer")

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomeFailed, result.Outcome)
	assert.Contains(t, result.Message, "connection reset")
	assert.Equal(t, model.RefundStatusFailed, f.refundRepo.refunds[refund.ID].Status)
}

func TestProcessSettlementPendingOutcome(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	f.refundRepo.add(refund)

	f.gateway.NextResult = &gateway.RefundResult{
		State:           gateway.StatePending,
		GatewayRefundID: "re_pending_42",
	}

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomePending, result.Outcome)
	require.NotNil(t, result.GatewayRefundID)
	assert.Equal(t, "re_pending_42", *result.GatewayRefundID)

	// No finalization yet: status approved, no restock, payment untouched.
	stored := f.refundRepo.refunds[refund.ID]
	assert.Equal(t, model.RefundStatusApproved, stored.Status)
	require.NotNil(t, stored.GatewayRefundID)
	assert.Equal(t, "re_pending_42", *stored.GatewayRefundID)
	assert.Empty(t, f.inventoryRepo.increments)
	assert.Empty(t, f.orderRepo.paymentLog)

	// The webhook confirmation finalizes.
	confirmed, err := f.svc.ConfirmPendingRefund(ctx, "re_pending_42")
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomeCompleted, confirmed.Outcome)
	assert.Equal(t, model.RefundStatusCompleted, f.refundRepo.refunds[refund.ID].Status)
	assert.Equal(t, 1, f.inventoryRepo.increments[refund.LineItems[0].InventoryID])
	assert.Equal(t, []string{ordermodel.PaymentStatusPartiallyRefunded}, f.orderRepo.paymentLog)
	assert.Equal(t, 1, f.gateway.CallCount(), "confirmation never re-calls the gateway")
}

func TestConfirmPendingRefundIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	gatewayID := "re_done_7"
	refund.GatewayRefundID = &gatewayID
	f.refundRepo.add(refund)

	first, err := f.svc.ConfirmPendingRefund(ctx, gatewayID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementOutcomeCompleted, first.Outcome)

	// Redelivered webhook: no second restock, no error.
	second, err := f.svc.ConfirmPendingRefund(ctx, gatewayID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementOutcomeCompleted, second.Outcome)
	assert.Equal(t, 1, f.inventoryRepo.increments[refund.LineItems[0].InventoryID])
	assert.Equal(t, []string{ordermodel.PaymentStatusPartiallyRefunded}, f.orderRepo.paymentLog)
}

func TestConfirmPendingRefundUnknownGatewayID(t *testing.T) {
	f := newSettlementFixture()

	_, err := f.svc.ConfirmPendingRefund(context.Background(), "re_nobody")
	requireRefundErrCode(t, err, model.ErrCodeRefundNotFound)
}

func TestProcessSettlementIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	// Simulates a crash after the gateway accepted the refund but before
	// finalization: the replayed call reports the charge as already
	// refunded, which still counts as success.
	refund := approvedRefund(f.orderRepo.order, f.orderRepo.orderLines, 3000, true)
	f.refundRepo.add(refund)

	f.gateway.NextResult = &gateway.RefundResult{
		State:           gateway.StateSucceeded,
		GatewayRefundID: "re_existing_1",
		AlreadyRefunded: true,
	}

	result, err := f.svc.ProcessSettlement(ctx, refund.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SettlementOutcomeCompleted, result.Outcome)
	stored := f.refundRepo.refunds[refund.ID]
	assert.Equal(t, model.RefundStatusCompleted, stored.Status)
	require.NotNil(t, stored.GatewayRefundID)
	assert.Equal(t, "re_existing_1", *stored.GatewayRefundID)
}
