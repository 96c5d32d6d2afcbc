// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"errors"
	"fmt"
)

var (
	errSDKPath          = errors.New("can't find SDK path")
	errXcodeVersion     = errors.New("can't find Xcode version")
	errEmptyPackageName = errors.New("manifest requires a package name")
	errToolsVersion     = errors.New("swift toolchain is older than the manifest tools version")
	errNoSlices         = errors.New("no binaries to merge")
)

// ToolError is returned when the resolver or compiler exits with a
// non-zero code. Output holds the combined stdout and stderr.
type ToolError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d:\n%s", e.Command, e.ExitCode, e.Output)
}
