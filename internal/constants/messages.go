package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgRateLimited        = "Too many requests, try again later"
	MsgTransactionFailed  = "The operation could not be completed, please retry"
	MsgStorageUnavailable = "Storage is temporarily unavailable"

	// Link-specific messages
	MsgInvalidURL   = "Invalid URL (must be http or https)"
	MsgInvalidCode  = "Invalid code (6 to 8 letters or digits)"
	MsgCodeConflict = "Code is already in use"
	MsgLinkNotFound = "Link not found"
)
