package api

import "errors"

// Sentinel errors for lead store operations.
var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrValidation   = errors.New("validation failed")
)
