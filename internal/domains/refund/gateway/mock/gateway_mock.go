package mock

import (
	"context"
	"fmt"
	"sync"

	"storefront-backend/internal/domains/refund/gateway"
)

// =====================================================
// MOCK REFUND GATEWAY FOR TESTING / LOCAL DEV
// =====================================================

// MockRefundGateway records calls and replays configured results. With no
// configuration it succeeds and fabricates a refund id; it also honors
// idempotency keys the way the real gateway does, returning the same refund
// id for a repeated key.
type MockRefundGateway struct {
	mu sync.Mutex

	// NextResult, when set, is returned once and cleared.
	NextResult *gateway.RefundResult
	// NextErr, when set, is returned once and cleared.
	NextErr error

	Calls  []gateway.RefundRequest
	byKey  map[string]string
	nextID int
}

func NewMockRefundGateway() *MockRefundGateway {
	return &MockRefundGateway{byKey: map[string]string{}}
}

func (m *MockRefundGateway) CreateRefund(
	ctx context.Context,
	req gateway.RefundRequest,
) (*gateway.RefundResult, error) {
	if req.PaymentIntentID == "" && req.ChargeID == "" {
		return nil, gateway.ErrMissingPaymentReference{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.NextErr != nil {
		err := m.NextErr
		m.NextErr = nil
		return nil, err
	}
	if m.NextResult != nil {
		result := m.NextResult
		m.NextResult = nil
		return result, nil
	}

	// Idempotent replay: same key yields the same refund id, flagged as
	// already refunded.
	if id, seen := m.byKey[req.IdempotencyKey]; seen {
		return &gateway.RefundResult{
			State:           gateway.StateSucceeded,
			GatewayRefundID: id,
			AlreadyRefunded: true,
		}, nil
	}

	m.nextID++
	id := fmt.Sprintf("re_mock_%06d", m.nextID)
	m.byKey[req.IdempotencyKey] = id

	return &gateway.RefundResult{
		State:           gateway.StateSucceeded,
		GatewayRefundID: id,
	}, nil
}

// CallCount reports how many gateway calls were made.
func (m *MockRefundGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
