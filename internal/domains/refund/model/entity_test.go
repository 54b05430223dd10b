package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefundRequestTransitions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		status   string
		deleted  bool
		approve  bool
		reject   bool
		cancel   bool
		settle   bool
		terminal bool
	}{
		{name: "pending", status: RefundStatusPending, approve: true, reject: true, cancel: true},
		{name: "approved", status: RefundStatusApproved, cancel: true, settle: true},
		{name: "failed is retry-eligible", status: RefundStatusFailed, settle: true},
		{name: "completed", status: RefundStatusCompleted, terminal: true},
		{name: "rejected", status: RefundStatusRejected, terminal: true},
		{name: "cancelled", status: RefundStatusCancelled, deleted: true, terminal: true},
		{name: "soft-deleted pending", status: RefundStatusPending, deleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RefundRequest{Status: tt.status}
			if tt.deleted {
				r.DeletedAt = &now
			}

			assert.Equal(t, tt.approve, r.CanBeApproved())
			assert.Equal(t, tt.reject, r.CanBeRejected())
			assert.Equal(t, tt.cancel, r.CanBeCancelled())
			assert.Equal(t, tt.settle, r.CanBeSettled())
			assert.Equal(t, tt.terminal, r.IsTerminal())
		})
	}
}
