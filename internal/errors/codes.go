package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong identifier or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthPhoneAlreadyExists = "AUTH_PHONE_EXISTS"
	AuthCodeInvalid        = "AUTH_CODE_INVALID" // wrong OTP
	AuthCodeExpired        = "AUTH_CODE_EXPIRED"
	AuthTooManyRequests    = "AUTH_TOO_MANY_REQUESTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden     = "AUTHZ_FORBIDDEN"
	AuthzTenantMissing = "AUTHZ_TENANT_REQUIRED" // no business selected for the request
	AuthzNotMember     = "AUTHZ_NOT_MEMBER"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationRequired      = "VALIDATION_REQUIRED"
	ValidationImmutable     = "VALIDATION_IMMUTABLE_FIELD"
	ValidationInvalidStatus = "VALIDATION_INVALID_STATUS"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Business (BUSINESS_) ====================
	BusinessNotFound = "BUSINESS_NOT_FOUND"

	// ==================== Catalog / stock (STOCK_) ====================
	ItemNotFound      = "ITEM_NOT_FOUND"
	StockInsufficient = "STOCK_INSUFFICIENT"

	// ==================== Cart / order (ORDER_) ====================
	CartEmpty              = "CART_EMPTY"
	CartItemNotFound       = "CART_ITEM_NOT_FOUND"
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	CustomerNotFound       = "CUSTOMER_NOT_FOUND"
	InvoiceNotFound        = "INVOICE_NOT_FOUND"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
