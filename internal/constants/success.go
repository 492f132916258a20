package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

// Link-related success responses
var (
	SuccessLinkCreated = APISuccess{
		Code:   CodeLinkCreated,
		Status: http.StatusCreated,
	}
	SuccessLinkReactivated = APISuccess{
		Code:   CodeLinkReactivated,
		Status: http.StatusOK,
	}
	SuccessLinkFound = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinksListed = APISuccess{
		Code:   CodeLinksListed,
		Status: http.StatusOK,
	}
	SuccessSuggestionsFound = APISuccess{
		Code:   CodeSuggestionsFound,
		Status: http.StatusOK,
	}
)

// Analytics success responses
var (
	SuccessStatsFound = APISuccess{
		Code:   CodeStatsFound,
		Status: http.StatusOK,
	}
	SuccessSummaryFound = APISuccess{
		Code:   CodeSummaryFound,
		Status: http.StatusOK,
	}
)
