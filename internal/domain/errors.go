package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownService      = errors.New("unknown service")
	ErrMissingPayer        = errors.New("payer address required")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStaleOpportunity    = errors.New("opportunity no longer profitable")
	ErrLockHeld            = errors.New("lock already held")
)
