package domain

import "errors"

// Error kinds surfaced by the order and catalog paths. Callers wrap them with
// detail and match with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrStore            = errors.New("store error")
	ErrPayment          = errors.New("payment failed")
	ErrModelUnavailable = errors.New("recommendation model unavailable")
	ErrNotFound         = errors.New("not found")
)
