// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/resources"
)

// FrameworkSearchPath is the directory frameworks of mode are staged in
// for whichever platform Xcode builds
func FrameworkSearchPath(productsDir string, mode meta.BuildMode) string {
	return filepath.Join(productsDir, string(mode), "$(PLATFORM_NAME)", resources.FrameworksDirectory)
}

// BuildSettings renders an xcconfig fragment. The first module is linked
// directly; every other module is linked as a framework.
func BuildSettings(modules []meta.ModuleConfig, searchPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FRAMEWORK_SEARCH_PATHS = $(inherited) \"%s\"\n", searchPath)
	b.WriteString("OTHER_LDFLAGS = $(inherited) -ObjC")
	for _, m := range modules[1:] {
		b.WriteString(" -framework " + m.Name)
	}
	b.WriteString("\n")
	return b.String()
}

// XCConfigFile is the fragment file name of mode
func XCConfigFile(mode meta.BuildMode) string {
	return string(mode) + ".xcconfig"
}

// WriteBuildSettings writes one xcconfig per build mode into dir and
// returns their paths. A single module needs no fragment: nothing is
// written and stale fragments are removed.
func WriteBuildSettings(dir string, modules []meta.ModuleConfig, productsDir string) ([]string, error) {
	if len(modules) <= 1 {
		for _, mode := range meta.BuildModes {
			if err := os.Remove(filepath.Join(dir, XCConfigFile(mode))); err != nil && !os.IsNotExist(err) {
				return nil, err
			}
		}
		return nil, nil
	}

	var paths []string
	for _, mode := range meta.BuildModes {
		path := filepath.Join(dir, XCConfigFile(mode))
		content := BuildSettings(modules, FrameworkSearchPath(productsDir, mode))
		if _, err := helper.WriteFileIfChanged(path, []byte(content)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
