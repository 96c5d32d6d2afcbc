// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opensbom-generator/spmkit/internal/helper"
)

// PlaceholderFile is written into targets that have no sources of their
// own; the package manager rejects targets without sources.
const PlaceholderFile = "Placeholder.swift"

const placeholderSource = "import Foundation\n"

// EnsureSources clears dir and fills it with the files under userSources.
// When userSources is empty or holds no files, a placeholder source is
// written instead.
func EnsureSources(dir, userSources string) error {
	if err := helper.ClearDir(dir); err != nil {
		return fmt.Errorf("clearing sources: %w", err)
	}

	if hasFiles(userSources) {
		if err := helper.CopyDir(userSources, dir); err != nil {
			return fmt.Errorf("copying sources from %s: %w", userSources, err)
		}
		return nil
	}

	return os.WriteFile(filepath.Join(dir, PlaceholderFile), []byte(placeholderSource), 0o644) // nolint:gosec
}

func hasFiles(dir string) bool {
	if dir == "" || !helper.Exists(dir) {
		return false
	}
	found := false
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}
