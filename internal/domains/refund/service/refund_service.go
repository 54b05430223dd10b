package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront-backend/internal/infrastructure/cache"

	ordermodel "storefront-backend/internal/domains/order/model"
	orderrepo "storefront-backend/internal/domains/order/repository"
	"storefront-backend/internal/domains/refund/model"
	"storefront-backend/internal/domains/refund/repository"
	"storefront-backend/pkg/logger"
)

// =====================================================
// REFUND SERVICE
// =====================================================

type refundService struct {
	refundRepo  repository.RefundRepoInterface
	orderRepo   orderrepo.OrderRepoInterface
	notifier    RefundNotifier
	invalidator CacheInvalidator
}

func NewRefundService(
	refundRepo repository.RefundRepoInterface,
	orderRepo orderrepo.OrderRepoInterface,
	notifier RefundNotifier,
	invalidator CacheInvalidator,
) RefundServiceInterface {
	return &refundService{
		refundRepo:  refundRepo,
		orderRepo:   orderRepo,
		notifier:    notifier,
		invalidator: invalidator,
	}
}

// =====================================================
// CREATE
// =====================================================

// CreateRefundRequest validates the request against the order's refundable
// quantity and remaining balance, then persists it in pending status.
func (s *refundService) CreateRefundRequest(
	ctx context.Context,
	dto *model.CreateRefundRequestDTO,
) (*model.RefundRequest, error) {
	// Step 1: Validate input
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Load order and its line items
	order, orderLines, err := s.loadOrder(ctx, dto.OrderID)
	if err != nil {
		return nil, err
	}

	lineByID := make(map[uuid.UUID]*ordermodel.OrderLineItem, len(orderLines))
	for i := range orderLines {
		lineByID[orderLines[i].ID] = &orderLines[i]
	}

	// Step 3: Enforce the per-line quantity bound
	refundedQty, err := s.refundRepo.RefundedQuantities(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read refunded quantities: %w", err)
	}

	refundLines := make([]model.RefundLineItem, 0, len(dto.LineItems))
	for _, line := range dto.LineItems {
		orderLine, exists := lineByID[line.OrderLineItemID]
		if !exists {
			return nil, model.NewValidationError(
				fmt.Sprintf("line item %s does not belong to order %s", line.OrderLineItemID, order.ID))
		}

		remaining := orderLine.Quantity - refundedQty[orderLine.ID]
		if line.Quantity > remaining {
			return nil, model.NewQuantityExceededError(orderLine.ID.String(), line.Quantity, remaining)
		}

		restock := model.ShouldRestockByDefault(dto.Reason)
		if line.Restock != nil {
			restock = *line.Restock
		}

		refundLines = append(refundLines, model.RefundLineItem{
			ID:              uuid.New(),
			OrderLineItemID: orderLine.ID,
			InventoryID:     orderLine.InventoryID,
			ProductID:       orderLine.ProductID,
			Quantity:        line.Quantity,
			Amount:          line.Amount,
			Restock:         restock,
		})
	}

	// Step 4: Enforce the remaining-balance bound
	if err := s.checkRemainingBalance(ctx, order, dto.Amount); err != nil {
		return nil, err
	}

	// Step 5: Persist
	refund := &model.RefundRequest{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    dto.Amount,
		Reason:    dto.Reason,
		Note:      dto.Note,
		Status:    model.RefundStatusPending,
		LineItems: refundLines,
	}

	if err := s.refundRepo.Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("failed to create refund request: %w", err)
	}

	logger.Info("refund request created", map[string]interface{}{
		"refund_request_id": refund.ID.String(),
		"order_id":          order.ID.String(),
		"amount":            refund.Amount,
		"reason":            refund.Reason,
	})

	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return refund, nil
}

// CreateReturnRequest builds a full-quantity return: every order line item's
// remaining refundable quantity at its unit price.
func (s *refundService) CreateReturnRequest(
	ctx context.Context,
	dto *model.CreateReturnRequestDTO,
) (*model.RefundRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	order, orderLines, err := s.loadOrder(ctx, dto.OrderID)
	if err != nil {
		return nil, err
	}

	refundedQty, err := s.refundRepo.RefundedQuantities(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read refunded quantities: %w", err)
	}

	restock := model.ShouldRestockByDefault(dto.Reason)

	var total int64
	var refundLines []model.RefundLineItem
	for _, orderLine := range orderLines {
		remaining := orderLine.Quantity - refundedQty[orderLine.ID]
		if remaining <= 0 {
			continue
		}

		amount := orderLine.UnitAmount * int64(remaining)
		total += amount
		refundLines = append(refundLines, model.RefundLineItem{
			ID:              uuid.New(),
			OrderLineItemID: orderLine.ID,
			InventoryID:     orderLine.InventoryID,
			ProductID:       orderLine.ProductID,
			Quantity:        remaining,
			Amount:          amount,
			Restock:         restock,
		})
	}

	if len(refundLines) == 0 {
		return nil, model.NewValidationError("order has no refundable quantity left")
	}

	if err := s.checkRemainingBalance(ctx, order, total); err != nil {
		return nil, err
	}

	refund := &model.RefundRequest{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    total,
		Reason:    dto.Reason,
		Note:      dto.Note,
		Status:    model.RefundStatusPending,
		LineItems: refundLines,
	}

	if err := s.refundRepo.Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}

	logger.Info("return request created", map[string]interface{}{
		"refund_request_id": refund.ID.String(),
		"order_id":          order.ID.String(),
		"amount":            refund.Amount,
	})

	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return refund, nil
}

func (s *refundService) loadOrder(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordermodel.Order, []ordermodel.OrderLineItem, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ordermodel.ErrOrderNotFound) {
			return nil, nil, model.NewRefundError(
				model.ErrCodeOrderNotFound,
				fmt.Sprintf("Order not found: %s", orderID),
				ordermodel.ErrOrderNotFound,
			)
		}
		return nil, nil, fmt.Errorf("failed to load order: %w", err)
	}

	lines, err := s.orderRepo.GetLineItems(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load order line items: %w", err)
	}

	return order, lines, nil
}

// checkRemainingBalance rejects requests that would push the order's total
// refund exposure past what was paid.
func (s *refundService) checkRemainingBalance(
	ctx context.Context,
	order *ordermodel.Order,
	amount int64,
) error {
	refundedTotal, err := s.refundRepo.RefundedAmountTotal(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to read refunded amount total: %w", err)
	}

	remaining := order.TotalAmount - refundedTotal
	if amount > remaining {
		return model.NewAmountExceededError(amount, remaining)
	}
	return nil
}

// =====================================================
// READS
// =====================================================

// GetRefundRequest returns the refund with its line items populated.
func (s *refundService) GetRefundRequest(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	refund, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return nil, model.NewRefundNotFoundError(id.String())
		}
		return nil, err
	}

	refund.LineItems, err = s.refundRepo.GetLineItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return refund, nil
}

func (s *refundService) ListRefundRequests(
	ctx context.Context,
	status string,
	page, limit int,
) ([]model.RefundRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	return s.refundRepo.List(ctx, status, limit, offset)
}

func (s *refundService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.RefundRequest, error) {
	return s.refundRepo.ListByOrder(ctx, orderID)
}

// =====================================================
// APPROVAL WORKFLOW
// =====================================================

// ApproveRefund transitions pending -> approved. The conditional update in
// the repository makes concurrent double-approval impossible.
func (s *refundService) ApproveRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	if err := s.refundRepo.Approve(ctx, id); err != nil {
		return nil, err
	}

	refund, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("refund request approved", map[string]interface{}{
		"refund_request_id": id.String(),
	})

	s.notifyApproved(ctx, refund)
	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return refund, nil
}

// RejectRefund transitions pending -> rejected; the optional reason is
// appended to the request note for audit.
func (s *refundService) RejectRefund(
	ctx context.Context,
	id uuid.UUID,
	dto *model.RejectRefundRequestDTO,
) (*model.RefundRequest, error) {
	if err := s.refundRepo.Reject(ctx, id, dto.Reason); err != nil {
		return nil, err
	}

	refund, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("refund request rejected", map[string]interface{}{
		"refund_request_id": id.String(),
	})

	s.notifyRejected(ctx, refund, dto.Reason)
	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return refund, nil
}

// CancelRefund soft-deletes a pending or approved request. The expected
// status read here feeds the conditional update, so a request that moves
// between the read and the write is reported as a conflict, not cancelled.
func (s *refundService) CancelRefund(ctx context.Context, id uuid.UUID) error {
	refund, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRefundNotFound) {
			return model.NewRefundNotFoundError(id.String())
		}
		return err
	}

	if !refund.CanBeCancelled() {
		return model.NewRefundError(
			model.ErrCodeRefundConflict,
			fmt.Sprintf("Refund status is '%s', cancellation not allowed", refund.Status),
			model.ErrCannotCancel,
		)
	}

	if err := s.refundRepo.Cancel(ctx, id, refund.Status); err != nil {
		return err
	}

	logger.Info("refund request cancelled", map[string]interface{}{
		"refund_request_id": id.String(),
	})

	s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)

	return nil
}

// =====================================================
// BULK OPERATIONS
// =====================================================

// BulkApprove applies the approval transition per row. Rows that lost the
// status precondition (already decided, cancelled, missing) are counted as
// skipped; only infrastructure errors abort the batch.
func (s *refundService) BulkApprove(
	ctx context.Context,
	dto *model.BulkRefundRequestDTO,
) (*model.BulkRefundResultDTO, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	result := &model.BulkRefundResultDTO{}
	for _, id := range dto.IDs {
		err := s.refundRepo.Approve(ctx, id)
		switch {
		case err == nil:
			result.ProcessedCount++
			if refund, getErr := s.refundRepo.GetByID(ctx, id); getErr == nil {
				s.notifyApproved(ctx, refund)
			}
		case errors.Is(err, model.ErrRefundConflict), errors.Is(err, model.ErrRefundNotFound):
			result.SkippedCount++
		default:
			return nil, fmt.Errorf("bulk approve aborted at %s: %w", id, err)
		}
	}

	logger.Info("bulk approve finished", map[string]interface{}{
		"processed": result.ProcessedCount,
		"skipped":   result.SkippedCount,
	})

	if result.ProcessedCount > 0 {
		s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)
	}

	return result, nil
}

// BulkReject mirrors BulkApprove for the rejection transition.
func (s *refundService) BulkReject(
	ctx context.Context,
	dto *model.BulkRefundRequestDTO,
) (*model.BulkRefundResultDTO, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	result := &model.BulkRefundResultDTO{}
	for _, id := range dto.IDs {
		err := s.refundRepo.Reject(ctx, id, dto.Reason)
		switch {
		case err == nil:
			result.ProcessedCount++
			if refund, getErr := s.refundRepo.GetByID(ctx, id); getErr == nil {
				s.notifyRejected(ctx, refund, dto.Reason)
			}
		case errors.Is(err, model.ErrRefundConflict), errors.Is(err, model.ErrRefundNotFound):
			result.SkippedCount++
		default:
			return nil, fmt.Errorf("bulk reject aborted at %s: %w", id, err)
		}
	}

	logger.Info("bulk reject finished", map[string]interface{}{
		"processed": result.ProcessedCount,
		"skipped":   result.SkippedCount,
	})

	if result.ProcessedCount > 0 {
		s.invalidator.Invalidate(ctx, cache.TagOrderRefunds, cache.TagAdminBadges)
	}

	return result, nil
}

// =====================================================
// NOTIFICATIONS (best-effort)
// =====================================================

func (s *refundService) notifyApproved(ctx context.Context, refund *model.RefundRequest) {
	order, err := s.orderRepo.GetByID(ctx, refund.OrderID)
	if err != nil {
		logger.Error("failed to load order for approval notification", err)
		return
	}

	err = s.notifier.EnqueueRefundApprovedEmail(model.RefundApprovedEmailPayload{
		RefundRequestID: refund.ID,
		Email:           order.CustomerEmail,
		OrderNumber:     order.OrderNumber,
		Amount:          refund.Amount,
	})
	if err != nil {
		logger.Error("failed to enqueue refund approved email", err)
	}
}

func (s *refundService) notifyRejected(ctx context.Context, refund *model.RefundRequest, reason *string) {
	order, err := s.orderRepo.GetByID(ctx, refund.OrderID)
	if err != nil {
		logger.Error("failed to load order for rejection notification", err)
		return
	}

	rejectionReason := ""
	if reason != nil {
		rejectionReason = *reason
	}

	err = s.notifier.EnqueueRefundRejectedEmail(model.RefundRejectedEmailPayload{
		RefundRequestID: refund.ID,
		Email:           order.CustomerEmail,
		OrderNumber:     order.OrderNumber,
		Reason:          rejectionReason,
	})
	if err != nil {
		logger.Error("failed to enqueue refund rejected email", err)
	}
}
