package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		context string
		code    string
	}{
		{"not found", fmt.Errorf("find: %w", gorm.ErrRecordNotFound), "get item", ResourceNotFound},
		{"translated duplicate", gorm.ErrDuplicatedKey, "create", ResourceAlreadyExists},
		{"postgres duplicate email", errors.New(`ERROR: duplicate key value violates unique constraint "idx_customer_business_email"`), "signup", AuthEmailAlreadyExists},
		{"sqlite duplicate phone", errors.New("UNIQUE constraint failed: customers.business_id, customers.phone"), "signup", AuthPhoneAlreadyExists},
		{"duplicate order number", errors.New(`duplicate key value violates unique constraint "idx_orders_order_number"`), "checkout", ResourceConflict},
		{"foreign key", errors.New("violates foreign key constraint"), "delete", ResourceConflict},
		{"unknown", errors.New("boom"), "update item", InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ParseError(tt.err, tt.context).Code)
		})
	}
}

func TestParseError_NotFoundMessageUsesContext(t *testing.T) {
	info := ParseError(gorm.ErrRecordNotFound, "get invoice")
	assert.Equal(t, "Invoice not found", info.Message)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "business_name", toSnake("BusinessName"))
	assert.Equal(t, "item_id", toSnake("ItemID"))
	assert.Equal(t, "quantity", toSnake("Quantity"))
}
