// SPDX-License-Identifier: Apache-2.0

package build

import "errors"

var (
	errNoTargets     = errors.New("no compile targets configured")
	errNoName        = errors.New("package name is required")
	errNoWorkingDir  = errors.New("working directory is required")
	errNoScratchDir  = errors.New("scratch directory is required")
	errNoArtifact    = errors.New("compiled library not found")
	errUnknownTarget = errors.New("unknown compile target")
)
