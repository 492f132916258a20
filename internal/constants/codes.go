package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTransactionFailed  = "TRANSACTION_FAILED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

	// Link-specific codes
	CodeInvalidURL   = "INVALID_URL"
	CodeInvalidCode  = "INVALID_CODE"
	CodeCodeConflict = "CODE_CONFLICT"
	CodeLinkNotFound = "LINK_NOT_FOUND"

	// Success codes
	CodeLinkCreated      = "LINK_CREATED"
	CodeLinkReactivated  = "LINK_REACTIVATED"
	CodeLinkFound        = "LINK_FOUND"
	CodeLinksListed      = "LINKS_LISTED"
	CodeStatsFound       = "STATS_FOUND"
	CodeSummaryFound     = "SUMMARY_FOUND"
	CodeSuggestionsFound = "SUGGESTIONS_FOUND"
)
