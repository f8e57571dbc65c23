package handlers

const (
	maxBodyBytes = 1 << 20

	ErrInvalidJSON         = "Invalid request body"
	ErrInvalidID           = "Invalid ID"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
