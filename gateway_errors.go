// FILE: gateway_errors.go
// Package main – Error taxonomy for the Exchange Gateway (spec.md §7).
//
// Every gateway method returns one of these sentinel-wrapped kinds so
// callers can branch on errors.Is without parsing strings. Severity mapping
// (INFO/WARN/ERROR/CRITICAL) is applied by the caller, not baked into the
// error itself, since the same ValidationRejected is a WARN from the
// coordinator's perspective but nothing worse.
package main

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrTransport) to
// attach venue-specific detail while staying errors.Is-compatible.
var (
	ErrTransport          = errors.New("transport error")
	ErrRateLimited        = errors.New("rate limited")
	ErrAuthentication     = errors.New("authentication failed")
	ErrValidationRejected = errors.New("validation rejected")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRejected           = errors.New("order rejected")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrDataUnavailable    = errors.New("data unavailable")
	ErrInvariantViolation = errors.New("invariant violation")
)

// wrapErr annotates a sentinel with call-specific context.
func wrapErr(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// isBenignCancel reports whether an error from cancel_order should be
// treated as success (spec.md §4.1: UnknownOrder on cancel is benign).
func isBenignCancel(err error) bool {
	return errors.Is(err, ErrUnknownOrder)
}
