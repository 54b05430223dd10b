package shared

// =====================================================
// ASYNQ TASK TYPES
// =====================================================
const (
	TypeRefundApprovedEmail = "email:refund_approved"
	TypeRefundRejectedEmail = "email:refund_rejected"
)

// =====================================================
// ASYNQ QUEUE NAMES
// =====================================================
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)
