// SPDX-License-Identifier: MIT
// Package: pulsetrain/stimerr
//
// errors.go — the error taxonomy shared by every pulsetrain package.
//
// Error policy (explicit and strict):
//   • Only sentinel variables (package-level) are exposed.
//   • Callers MUST use errors.Is(err, ErrX) to branch on semantics.
//   • Sentinels are NEVER wrapped with formatted strings at definition site.
//   • Implementations attach context through Wrap (method prefix + %w).
//   • Algorithms MUST NOT panic at runtime; panics are confined to option
//     constructors receiving programmer errors (nil rng, nil logger).
//
// Priority (when several checks fail, the first class reported wins):
//   • ErrConfiguration  — platform descriptor or internal grid is broken.
//   • ErrValidation     — request fields are malformed or out of range.
//   • ErrAchievability  — request is well formed but exceeds the timing budget.
//   • ErrBufferOverflow — one pulse does not fit the fixed hardware buffer.

package stimerr

import (
	"errors"
	"fmt"
)

// ErrValidation indicates a malformed request: amplitude above the allowed
// maximum, unknown electrode, malformed modulator curve, bad asymmetry, etc.
// Usage: if errors.Is(err, ErrValidation) { /* ask the caller to fix input */ }.
var ErrValidation = errors.New("pulsetrain: validation failed")

// ErrAchievability indicates the requested rate/phase/gap combination does
// not fit the platform timing budget, before or after jitter is applied.
var ErrAchievability = errors.New("pulsetrain: timing not achievable")

// ErrBufferOverflow indicates that phase and gap steps exceed the fixed
// hardware buffer capacity of the platform.
var ErrBufferOverflow = errors.New("pulsetrain: buffer capacity exceeded")

// ErrConfiguration indicates a platform-descriptor bug, e.g. an empty or
// non-increasing candidate grid reaching the quantization solver.
var ErrConfiguration = errors.New("pulsetrain: invalid configuration")

// Wrap returns an error of the form "<method>: <formatted message>: <sentinel>"
// that still satisfies errors.Is(err, sentinel).
//
// Complexity: O(len(format) + Σlen(args)).
func Wrap(method string, sentinel error, format string, args ...interface{}) error {
	inner := fmt.Sprintf(format, args...)

	return fmt.Errorf("%s: %s: %w", method, inner, sentinel)
}

// Class returns the taxonomy sentinel carried by err, or nil when err does
// not belong to the taxonomy. Transport layers use it to map errors to
// status codes without string matching.
func Class(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrAchievability):
		return ErrAchievability
	case errors.Is(err, ErrBufferOverflow):
		return ErrBufferOverflow
	default:
		return nil
	}
}
