package api

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Message string `json:"message"`
}

const (
	livenessText = "Chemical Process Dashboard API is running!"

	msgDataFailed   = "Error retrieving process data"
	msgLatestFailed = "Error retrieving latest process data"
	msgInvalidCount = "Invalid count parameter. Must be a positive integer."
	msgNotAllowed   = "method not allowed"
	msgNotFound     = "not found"
	msgTimedOut     = "request timed out"
)
