// errors.go - error taxonomy shared by every subsystem
//
// License: GPLv3 or later

package luxkernel

import "errors"

// Sentinel errors shared across subsystems. Callers wrap these with
// fmt.Errorf("%w: ...") for context; errors.Is still matches the sentinel.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("subsystem unavailable")
	ErrExhausted       = errors.New("resource exhausted")
	ErrDeviceError     = errors.New("device error")
	ErrCorrupt         = errors.New("corrupt on-disk structure")
	ErrNotFound        = errors.New("not found")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrBounds          = errors.New("out of bounds")
)
