package errors

// Machine-readable error codes returned in the `code`/`error` fields of
// JSON error responses. Clients branch on these, never on messages.

const (
	// Token verification
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAlreadyConfirmed   = "ALREADY_CONFIRMED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeConfirmationFailed = "CONFIRMATION_FAILED"

	// Token issuance
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeEmailSendFailed   = "EMAIL_SEND_FAILED"

	// Auth (admin surface)
	CodeAuthUnauthorized = "AUTH_UNAUTHORIZED"
	CodeAuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	CodeAuthTokenInvalid = "AUTH_TOKEN_INVALID"
	CodeAuthzForbidden   = "AUTHZ_FORBIDDEN"

	// Validation
	CodeValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	CodeValidationInvalidID    = "VALIDATION_INVALID_ID"
	CodeValidationRequired     = "VALIDATION_REQUIRED"

	// Resources
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"
	CodeResourceConflict = "RESOURCE_CONFLICT"

	// Transport
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"

	// Internal
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)
