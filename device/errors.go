// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error kinds. Every error returned by this package and by drivers
// is marked with one of them and can be tested with errors.Is.
var (
	// ErrCapabilityMissing marks a requested extension or layer
	// that the driver does not report.
	ErrCapabilityMissing = errors.New("capability missing")

	// ErrUnsuitable marks a physical device rejected by the selector.
	ErrUnsuitable = errors.New("device unsuitable")

	// ErrNoSuitableDevice is returned when no enumerated device is suitable.
	ErrNoSuitableDevice = errors.New("no suitable device")

	// ErrDriverCall marks a driver call that returned a non-success status.
	ErrDriverCall = errors.New("driver call failed")
)

// DriverError is a non-success status code returned by a driver call.
type DriverError struct {
	Call        string
	Code        int32
	Description string
}

func (e *DriverError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s(): status %d", e.Call, e.Code)
	}
	return fmt.Sprintf("%s(): %s (status %d)", e.Call, e.Description, e.Code)
}

// NewDriverError returns a DriverError marked with ErrDriverCall.
func NewDriverError(call string, code int32, description string) error {
	return errors.Mark(&DriverError{
		Call:        call,
		Code:        code,
		Description: description,
	}, ErrDriverCall)
}

func missingError(what string, names []string) error {
	return errors.Mark(errors.Newf("missing %s: %v", what, names), ErrCapabilityMissing)
}

func unsuitable(reason string, args ...interface{}) error {
	return errors.Mark(errors.Newf(reason, args...), ErrUnsuitable)
}
