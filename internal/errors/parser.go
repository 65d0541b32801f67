package errors

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorInfo is a code/message pair safe to return to clients
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns a database error into a client-safe code and message.
// Driver details are never echoed back.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Internal server error"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error())
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "duplicate key"), strings.Contains(lower, "unique constraint"):
		return parseDuplicateKeyError(err.Error())
	case strings.Contains(lower, "foreign key constraint"):
		return ErrorInfo{Code: ResourceConflict, Message: "The record is referenced by other data"}
	case strings.Contains(lower, "violates not-null constraint"), strings.Contains(lower, "not null constraint"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(lower, "check constraint"):
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "slug"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "That business address is already taken"}
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already registered"}
	case strings.Contains(lower, "phone"):
		return ErrorInfo{Code: AuthPhoneAlreadyExists, Message: "Phone number is already registered"}
	case strings.Contains(lower, "order_number"), strings.Contains(lower, "invoice_number"):
		return ErrorInfo{Code: ResourceConflict, Message: "Could not allocate a document number, please retry"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Record already exists"}
}

// ValidationFields flattens binding errors into field -> message.
func ValidationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[toSnake(fe.Field())] = fieldMessage(fe)
		}
		return fields
	}
	fields["body"] = "malformed request body"
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	}
	return "is invalid"
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "business"):
		return "Business not found"
	case strings.Contains(lower, "customer"):
		return "Customer not found"
	case strings.Contains(lower, "item"):
		return "Item not found"
	case strings.Contains(lower, "order"):
		return "Order not found"
	case strings.Contains(lower, "invoice"):
		return "Invoice not found"
	}
	return "Requested resource not found"
}

func defaultMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "create"):
		return "Failed to create the record, please try again"
	case strings.Contains(lower, "update"):
		return "Failed to update the record, please try again"
	case strings.Contains(lower, "delete"):
		return "Failed to delete the record, please try again"
	}
	return "Something went wrong, please try again later"
}

// ParseAndRespond parses err and writes it with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
