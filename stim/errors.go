// SPDX-License-Identifier: MIT
// Package: pulsetrain/stim
//
// errors.go — method names and the stage-tagged derivation error.
//
// Error policy:
//   • Every error returned by this package wraps a stimerr sentinel, so
//     errors.Is(err, stimerr.ErrX) is the only supported way to branch.
//   • Derive and Snapshot.With additionally wrap the failure in *DeriveError,
//     which records the last stage the pipeline reached.

package stim

import (
	"fmt"

	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Method names used as error prefixes.
const (
	MethodValidate = "Validate"
	MethodFit      = "Fit"
	MethodSchedule = "Schedule"
	MethodDerive   = "Derive"
	MethodWith     = "With"
)

// DeriveError reports which pipeline stage a derivation reached before it
// failed. Unwrap exposes the underlying sentinel-wrapped error.
type DeriveError struct {
	Stage Stage // last stage completed before the failure
	Err   error
}

// Error implements error.
func (e *DeriveError) Error() string {
	return fmt.Sprintf("%s (after %s): %v", MethodDerive, e.Stage, e.Err)
}

// Unwrap returns the wrapped error.
func (e *DeriveError) Unwrap() error { return e.Err }

// wrapf prefixes method and attaches sentinel through stimerr.Wrap.
func wrapf(method string, sentinel error, format string, args ...interface{}) error {
	return stimerr.Wrap(method, sentinel, format, args...)
}
