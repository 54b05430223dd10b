package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/infrastructure/cache"

	inventoryrepo "storefront-backend/internal/domains/inventory/repository"
	ordermodel "storefront-backend/internal/domains/order/model"
	orderrepo "storefront-backend/internal/domains/order/repository"
	"storefront-backend/internal/domains/refund/gateway"
	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/domains/refund/repository"
	"storefront-backend/pkg/logger"
)

// =====================================================
// SETTLEMENT SERVICE (saga controller)
// =====================================================

// settlementService drives the three-phase settlement flow:
//
//	Phase 1: lock the refund row, validate status and payment references,
//	         release the lock. The lock is never held across the gateway
//	         call.
//	Phase 2: submit the refund to the gateway with a deterministic
//	         idempotency key ("refund_<id>"). A replay after a crash cannot
//	         double-refund.
//	Phase 3: re-lock and finalize in one transaction: mark completed,
//	         restock flagged line items, recompute the order's aggregate
//	         payment status.
//
// A pending gateway result stops after Phase 2; the webhook path
// (ConfirmPendingRefund) runs Phase 3 later.
type settlementService struct {
	refundRepo    repository.RefundRepoInterface
	orderRepo     orderrepo.OrderRepoInterface
	inventoryRepo inventoryrepo.InventoryRepoInterface
	txManager     repository.TransactionManager
	gateway       gateway.RefundGateway
	invalidator   CacheInvalidator
}

func NewSettlementService(
	refundRepo repository.RefundRepoInterface,
	orderRepo orderrepo.OrderRepoInterface,
	inventoryRepo inventoryrepo.InventoryRepoInterface,
	txManager repository.TransactionManager,
	refundGateway gateway.RefundGateway,
	invalidator CacheInvalidator,
) SettlementServiceInterface {
	return &settlementService{
		refundRepo:    refundRepo,
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		txManager:     txManager,
		gateway:       refundGateway,
		invalidator:   invalidator,
	}
}

// IdempotencyKey derives the gateway idempotency key for a refund request.
// Deterministic: every settlement attempt for the same request sends the
// same key.
func IdempotencyKey(id uuid.UUID) string {
	return "refund_" + id.String()
}

// ProcessSettlement runs the full saga for one refund request.
func (s *settlementService) ProcessSettlement(
	ctx context.Context,
	id uuid.UUID,
) (*model.SettlementResultDTO, error) {
	// ---------- Phase 1: locked validation ----------
	snapshot, err := s.validateForSettlement(ctx, id)
	if err != nil {
		return nil, err
	}

	// ---------- Phase 2: gateway call (no lock held) ----------
	gatewayReq := gateway.RefundRequest{
		Amount: snapshot.Refund.Amount,
		Reason: model.MapReasonToGatewayCode(snapshot.Refund.Reason),
		Metadata: map[string]string{
			"refund_request_id": id.String(),
			"order_id":          snapshot.Refund.OrderID.String(),
			"order_number":      snapshot.OrderNumber,
		},
		IdempotencyKey: IdempotencyKey(id),
	}
	if snapshot.PaymentIntentID != nil {
		gatewayReq.PaymentIntentID = *snapshot.PaymentIntentID
	}
	if snapshot.ChargeID != nil {
		gatewayReq.ChargeID = *snapshot.ChargeID
	}

	result, err := s.gateway.CreateRefund(ctx, gatewayReq)
	if err != nil {
		var missingRef gateway.ErrMissingPaymentReference
		if errors.As(err, &missingRef) {
			return nil, model.NewNoChargeReferenceError(snapshot.Refund.OrderID.String())
		}
		// Transport failure: the gateway outcome is unknown, but the
		// idempotency key makes a retry safe. Record failed and hand the
		// decision back to the operator.
		return s.recordFailure(ctx, id, fmt.Sprintf("gateway call failed: %v", err))
	}

	switch result.State {
	case gateway.StateFailed:
		return s.recordFailure(ctx, id, result.Message)

	case gateway.StatePending:
		if result.GatewayRefundID != "" {
			if err := s.refundRepo.SetGatewayRefundID(ctx, id, result.GatewayRefundID); err != nil {
				return nil, fmt.Errorf("failed to record pending gateway refund id: %w", err)
			}
		}
		logger.Info("gateway refund pending", map[string]interface{}{
			"refund_request_id": id.String(),
			"gateway_refund_id": result.GatewayRefundID,
		})
		return &model.SettlementResultDTO{
			RefundRequestID: id,
			Outcome:         model.SettlementOutcomePending,
			GatewayRefundID: optionalString(result.GatewayRefundID),
		}, nil

	case gateway.StateSucceeded:
		// ---------- Phase 3: finalize ----------
		if result.AlreadyRefunded {
			logger.Warn("gateway reported charge already refunded, finalizing locally", map[string]interface{}{
				"refund_request_id": id.String(),
			})
		}
		return s.finalize(ctx, id, optionalString(result.GatewayRefundID))

	default:
		return nil, model.NewRefundError(
			model.ErrCodeGatewayFailed,
			fmt.Sprintf("unrecognized gateway state %q", result.State),
			model.ErrGatewayFailed,
		)
	}
}

// ConfirmPendingRefund finalizes a refund whose gateway call returned
// pending, driven by the gateway's asynchronous confirmation event.
func (s *settlementService) ConfirmPendingRefund(
	ctx context.Context,
	gatewayRefundID string,
) (*model.SettlementResultDTO, error) {
	refund, err := s.refundRepo.GetByGatewayRefundID(ctx, gatewayRefundID)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return nil, model.NewRefundNotFoundError(gatewayRefundID)
		}
		return nil, err
	}

	return s.finalize(ctx, refund.ID, &gatewayRefundID)
}

// =====================================================
// PHASE 1
// =====================================================

// validateForSettlement reads the settlement snapshot under a row lock and
// checks every precondition. The transaction is read-only and committed
// before return, releasing the lock.
func (s *settlementService) validateForSettlement(
	ctx context.Context,
	id uuid.UUID,
) (*model.SettlementSnapshot, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer s.txManager.RollbackTx(ctx, tx)

	snapshot, err := s.refundRepo.GetForSettlementTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return nil, model.NewRefundNotFoundError(id.String())
		}
		return nil, err
	}

	refund := snapshot.Refund
	if refund.Status == model.RefundStatusCompleted {
		return nil, model.NewAlreadyProcessedError(id.String())
	}
	if !refund.CanBeSettled() {
		return nil, model.NewNotApprovedError(refund.Status)
	}
	if snapshot.PaymentIntentID == nil && snapshot.ChargeID == nil {
		return nil, model.NewNoChargeReferenceError(refund.OrderID.String())
	}

	if err := s.txManager.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// =====================================================
// PHASE 3
// =====================================================

// finalize completes the refund in one transaction: status flip, inventory
// restock, order payment status recompute. The snapshot is re-read under the
// lock; a concurrent finalizer that won the race turns this call into an
// idempotent no-op.
func (s *settlementService) finalize(
	ctx context.Context,
	id uuid.UUID,
	gatewayRefundID *string,
) (*model.SettlementResultDTO, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer s.txManager.RollbackTx(ctx, tx)

	snapshot, err := s.refundRepo.GetForSettlementTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return nil, model.NewRefundNotFoundError(id.String())
		}
		return nil, err
	}

	refund := snapshot.Refund
	if refund.Status == model.RefundStatusCompleted {
		// Already finalized by a concurrent settlement or an earlier webhook.
		return &model.SettlementResultDTO{
			RefundRequestID: id,
			Outcome:         model.SettlementOutcomeCompleted,
			GatewayRefundID: refund.GatewayRefundID,
			ProcessedAt:     refund.ProcessedAt,
		}, nil
	}
	if !refund.CanBeSettled() {
		return nil, model.NewRefundConflictError(refund.Status)
	}

	processedAt := time.Now().UTC()

	// Step 1: Mark completed
	if err := s.refundRepo.MarkCompletedTx(ctx, tx, id, gatewayRefundID, processedAt); err != nil {
		return nil, err
	}

	// Step 2: Restock flagged line items
	for _, line := range snapshot.LineItems {
		if !line.Restock {
			continue
		}
		if err := s.inventoryRepo.IncrementAvailableTx(ctx, tx, line.InventoryID, line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to restock inventory %s: %w", line.InventoryID, err)
		}
	}

	// Step 3: Recompute the order's aggregate payment status
	completedTotal := snapshot.OtherCompletedTotal + refund.Amount
	paymentStatus := ordermodel.PaymentStatusPartiallyRefunded
	if completedTotal >= snapshot.OrderTotal {
		paymentStatus = ordermodel.PaymentStatusRefunded
	}
	if err := s.orderRepo.UpdatePaymentStatusTx(ctx, tx, refund.OrderID, paymentStatus); err != nil {
		return nil, err
	}

	if err := s.txManager.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	logger.Info("refund settled", map[string]interface{}{
		"refund_request_id": id.String(),
		"order_id":          refund.OrderID.String(),
		"amount":            refund.Amount,
		"payment_status":    paymentStatus,
	})

	tags := []string{
		cache.TagOrderRefunds,
		cache.TagOrderList,
		cache.TagAdminBadges,
		cache.TagDashboardKPIs,
		cache.TagDashboardOrders,
		cache.TagRevenue,
	}
	// Inventory and product caches are only stale when stock actually moved.
	restockedInventories := make(map[uuid.UUID]bool)
	restockedProducts := make(map[uuid.UUID]bool)
	for _, line := range snapshot.LineItems {
		if !line.Restock {
			continue
		}
		if !restockedInventories[line.InventoryID] {
			restockedInventories[line.InventoryID] = true
			tags = append(tags, cache.TagStock+":"+line.InventoryID.String())
		}
		if !restockedProducts[line.ProductID] {
			restockedProducts[line.ProductID] = true
			tags = append(tags, cache.TagProductDetail+":"+line.ProductID.String())
		}
	}
	if len(restockedInventories) > 0 {
		tags = append(tags, cache.TagInventoryList)
	}
	s.invalidator.Invalidate(ctx, tags...)

	finalGatewayID := gatewayRefundID
	if finalGatewayID == nil {
		finalGatewayID = refund.GatewayRefundID
	}

	return &model.SettlementResultDTO{
		RefundRequestID: id,
		Outcome:         model.SettlementOutcomeCompleted,
		GatewayRefundID: finalGatewayID,
		ProcessedAt:     &processedAt,
	}, nil
}

// recordFailure persists the failed status with the gateway's message and
// reports the failure as a settlement outcome, not an error: the request
// stays retry-eligible.
func (s *settlementService) recordFailure(
	ctx context.Context,
	id uuid.UUID,
	message string,
) (*model.SettlementResultDTO, error) {
	if message == "" {
		message = "gateway refund failed"
	}

	if err := s.refundRepo.MarkFailed(ctx, id, message); err != nil {
		return nil, fmt.Errorf("failed to record settlement failure: %w", err)
	}

	logger.Error("gateway refund failed", errors.New(message))
	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return &model.SettlementResultDTO{
		RefundRequestID: id,
		Outcome:         model.SettlementOutcomeFailed,
		Message:         message,
	}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
