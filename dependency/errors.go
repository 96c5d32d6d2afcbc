// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"errors"
)

var (
	errDuplicateName   = errors.New("dependency name already declared")
	errEmptyName       = errors.New("dependency name is required")
	errEmptyPath       = errors.New("dependency path is required")
	errEmptyURL        = errors.New("dependency url is required")
	errMissingChecksum = errors.New("remote binary requires a checksum")
	errNoProducts      = errors.New("package dependency requires at least one product")
	errEmptyRevision   = errors.New("remote package requires a version, branch or commit")
	errInvalidVersion  = errors.New("invalid exact version")
	errEmptyProduct    = errors.New("product name is required")
)
