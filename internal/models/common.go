package models

import "errors"

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Store errors. Repositories wrap these with context; callers match with
// errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidContent = errors.New("invalid content")
	ErrStoreFault     = errors.New("store fault")
)
