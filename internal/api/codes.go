package api

// Machine-readable error codes carried in the envelope's code field. The
// client keys UI copy off these instead of scraping error text; the legacy
// substring checks remain only as a fallback for older backend builds.
const (
	CodeBadCredentials    = "BAD_CREDENTIALS"
	CodeInvalidCode       = "INVALID_CODE"
	CodeLimitCooldown     = "LIMIT_CHANGE_COOLDOWN"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeLimitExceeded     = "DAILY_LIMIT_EXCEEDED"
	CodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	CodeDNINotFound       = "DNI_NOT_FOUND"
	CodeKYCNameMismatch   = "KYC_NAME_MISMATCH"
	CodeUnderage          = "UNDERAGE"
	CodeDocumentTaken     = "DOCUMENT_TAKEN"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeTwoFactorRequired = "TWO_FACTOR_REQUIRED"
	CodeCardNotActive     = "CARD_NOT_ACTIVE"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeResendCooldown    = "RESEND_COOLDOWN"
)
