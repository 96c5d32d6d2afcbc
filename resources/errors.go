// SPDX-License-Identifier: Apache-2.0

package resources

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSystemType is returned for platform names no system type matches
	ErrNoSystemType = errors.New("no matching systemType")
	// ErrNoBuildDir is returned when the build output directory is missing
	ErrNoBuildDir = errors.New("can't find package build dir")
)

// ConfigError is a fatal configuration problem of one target
type ConfigError struct {
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
