package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidPin       = errors.New("pin must be exactly 6 digits")
	ErrPinNotPending    = errors.New("no pin verification pending")
	ErrExchangeInFlight = errors.New("exchange already in flight")
	ErrUpstream         = errors.New("upstream failure")
)
