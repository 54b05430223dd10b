package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateDTO() *CreateRefundRequestDTO {
	return &CreateRefundRequestDTO{
		OrderID: uuid.New(),
		Reason:  ReasonCustomerRequest,
		Amount:  1500,
		LineItems: []CreateRefundLineItemDTO{
			{OrderLineItemID: uuid.New(), Quantity: 1, Amount: 1000},
			{OrderLineItemID: uuid.New(), Quantity: 2, Amount: 500},
		},
	}
}

func TestCreateRefundRequestDTOValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validCreateDTO().Validate())
	})

	t.Run("missing order id", func(t *testing.T) {
		dto := validCreateDTO()
		dto.OrderID = uuid.Nil
		assertValidationError(t, dto.Validate())
	})

	t.Run("invalid reason", func(t *testing.T) {
		dto := validCreateDTO()
		dto.Reason = "buyer_remorse"
		assertValidationError(t, dto.Validate())
	})

	t.Run("zero amount", func(t *testing.T) {
		dto := validCreateDTO()
		dto.Amount = 0
		assertValidationError(t, dto.Validate())
	})

	t.Run("no line items", func(t *testing.T) {
		dto := validCreateDTO()
		dto.LineItems = nil
		assertValidationError(t, dto.Validate())
	})

	t.Run("line amounts must sum to request amount", func(t *testing.T) {
		dto := validCreateDTO()
		dto.Amount = 1499
		assertValidationError(t, dto.Validate())
	})

	t.Run("negative line amount", func(t *testing.T) {
		dto := validCreateDTO()
		dto.LineItems[0].Amount = -1
		assertValidationError(t, dto.Validate())
	})

	t.Run("zero line quantity", func(t *testing.T) {
		dto := validCreateDTO()
		dto.LineItems[0].Quantity = 0
		assertValidationError(t, dto.Validate())
	})

	t.Run("zero-amount line is allowed", func(t *testing.T) {
		dto := validCreateDTO()
		dto.LineItems[1].Amount = 0
		dto.Amount = 1000
		assert.NoError(t, dto.Validate())
	})
}

func TestBulkRefundRequestDTOValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		dto := &BulkRefundRequestDTO{IDs: []uuid.UUID{uuid.New()}}
		assert.NoError(t, dto.Validate())
	})

	t.Run("empty", func(t *testing.T) {
		dto := &BulkRefundRequestDTO{}
		assertValidationError(t, dto.Validate())
	})

	t.Run("over batch limit", func(t *testing.T) {
		ids := make([]uuid.UUID, 101)
		for i := range ids {
			ids[i] = uuid.New()
		}
		dto := &BulkRefundRequestDTO{IDs: ids}
		assertValidationError(t, dto.Validate())
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)

	var refundErr *RefundError
	require.True(t, errors.As(err, &refundErr))
	assert.Equal(t, ErrCodeValidation, refundErr.Code)
}
