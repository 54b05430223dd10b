package model

// =====================================================
// REFUND REQUEST STATUS
// =====================================================
// State machine:
//   pending -> approved -> completed
//   pending -> rejected
//   pending/approved -> cancelled
//   approved -> failed (retry-eligible: settlement may be re-invoked)
const (
	RefundStatusPending   = "pending"
	RefundStatusApproved  = "approved"
	RefundStatusRejected  = "rejected"
	RefundStatusCompleted = "completed"
	RefundStatusFailed    = "failed"
	RefundStatusCancelled = "cancelled"
)

var ValidRefundStatuses = []string{
	RefundStatusPending,
	RefundStatusApproved,
	RefundStatusRejected,
	RefundStatusCompleted,
	RefundStatusFailed,
	RefundStatusCancelled,
}

// =====================================================
// REFUND REASONS
// =====================================================
const (
	ReasonFraud           = "fraud"
	ReasonCustomerRequest = "customer_request"
	ReasonDefective       = "defective"
	ReasonWrongItem       = "wrong_item"
	ReasonLostInTransit   = "lost_in_transit"
	ReasonOther           = "other"
)

var ValidRefundReasons = []string{
	ReasonFraud,
	ReasonCustomerRequest,
	ReasonDefective,
	ReasonWrongItem,
	ReasonLostInTransit,
	ReasonOther,
}

// IsValidReason checks the reason against the enum.
func IsValidReason(reason string) bool {
	for _, r := range ValidRefundReasons {
		if reason == r {
			return true
		}
	}
	return false
}

// =====================================================
// RESTOCK POLICY
// =====================================================

// Default restock decision per reason, applied only when the caller does
// not set an explicit per-line restock flag.
//   - customer_request, wrong_item: goods come back in sellable condition
//   - defective: goods are damaged, never restocked by default
//   - lost_in_transit: goods never return
//   - fraud, other: manual decision, default off
var restockDefaults = map[string]bool{
	ReasonFraud:           false,
	ReasonCustomerRequest: true,
	ReasonDefective:       false,
	ReasonWrongItem:       true,
	ReasonLostInTransit:   false,
	ReasonOther:           false,
}

// ShouldRestockByDefault maps a refund reason to the default
// return-to-inventory flag. Unknown reasons default to false.
func ShouldRestockByDefault(reason string) bool {
	return restockDefaults[reason]
}

// =====================================================
// GATEWAY REASON MAPPING
// =====================================================

// Stripe only accepts three refund reasons; everything that is not fraud
// collapses to requested_by_customer.
var gatewayReasonMap = map[string]string{
	ReasonFraud:           "fraudulent",
	ReasonCustomerRequest: "requested_by_customer",
	ReasonDefective:       "requested_by_customer",
	ReasonWrongItem:       "requested_by_customer",
	ReasonLostInTransit:   "requested_by_customer",
	ReasonOther:           "requested_by_customer",
}

// MapReasonToGatewayCode maps an internal reason to the gateway reason code.
func MapReasonToGatewayCode(reason string) string {
	if code, exists := gatewayReasonMap[reason]; exists {
		return code
	}
	return "requested_by_customer"
}

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeRefundNotFound     = "REF001"
	ErrCodeRefundConflict     = "REF002"
	ErrCodeAlreadyProcessed   = "REF003"
	ErrCodeNotApproved        = "REF004"
	ErrCodeNoChargeReference  = "REF005"
	ErrCodeValidation         = "REF006"
	ErrCodeGatewayFailed      = "REF007"
	ErrCodeOrderNotFound      = "REF008"
	ErrCodeQuantityExceeded   = "REF009"
	ErrCodeAmountExceeded     = "REF010"
	ErrCodeInternalError      = "REF011"
)
