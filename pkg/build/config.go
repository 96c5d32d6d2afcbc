// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"
	"path/filepath"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/swift"
)

// Config is everything one orchestration needs. It is copied into the
// orchestrator; later changes to the caller's value have no effect.
type Config struct {
	Declarations dependency.Declarations
	// Manifest names the package and carries platforms and settings.
	// Export and Include are ignored.
	Manifest    swift.ManifestOptions
	Directories meta.PackageDirectories
	Targets     []meta.CompileTarget
	Mode        meta.BuildMode

	// SourcesDir holds user sources compiled into the package target.
	// Empty means a placeholder source is generated.
	SourcesDir string
	// BuildDir receives a copy of every compiled library
	BuildDir string
	// ProductsDir receives frameworks and bundles, per mode and target and
	// merged per mode and platform
	ProductsDir string
	TraceDir    string
	NetrcFile   string
	// Jobs limits the pipelines running at once; 0 runs all targets at once
	Jobs int

	Export ExportConfig
}

// ExportConfig controls the umbrella package for the app project
type ExportConfig struct {
	Enabled bool
	Name    string
	// Include overrides the referenced products; nil derives them from
	// the declarations
	Include []string
}

func (c *Config) validate() error {
	if c.Manifest.Name == "" {
		return errNoName
	}
	if len(c.Targets) == 0 {
		return errNoTargets
	}
	for _, t := range c.Targets {
		if _, err := meta.ParseCompileTarget(string(t)); err != nil {
			return fmt.Errorf("%w %q", errUnknownTarget, t)
		}
	}
	if _, err := meta.ParseBuildMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Directories.WorkingDir == "" {
		return errNoWorkingDir
	}
	if c.Directories.ScratchDir == "" {
		return errNoScratchDir
	}
	return nil
}

// withDefaults fills unset directories below the working directory
func (c Config) withDefaults() Config {
	work := c.Directories.WorkingDir
	if c.BuildDir == "" {
		c.BuildDir = filepath.Join(work, "build")
	}
	if c.ProductsDir == "" {
		c.ProductsDir = filepath.Join(work, "products")
	}
	if c.TraceDir == "" {
		c.TraceDir = filepath.Join(work, "traces")
	}
	if c.Jobs <= 0 {
		c.Jobs = len(c.Targets)
	}
	if c.Export.Name == "" {
		c.Export.Name = c.Manifest.Name + "Exported"
	}
	c.Targets = append([]meta.CompileTarget(nil), c.Targets...)
	c.Manifest.Export = false
	c.Manifest.Include = nil
	c.Manifest.Settings = c.Manifest.Settings.Clone()
	if c.Export.Include != nil {
		c.Export.Include = append([]string{}, c.Export.Include...)
	}
	return c
}

// LibraryName is the file name of the compiled static library
func (c *Config) LibraryName() string {
	return "lib" + c.Manifest.Name + ".a"
}

// TargetProductsDir is where the pipeline of t stages its frameworks and
// bundles. No other pipeline writes below it.
func (c *Config) TargetProductsDir(t meta.CompileTarget) string {
	return filepath.Join(c.ProductsDir, string(c.Mode), string(t))
}

// PlatformProductsDir holds the frameworks and bundles of every target
// built against sdk, merged after all pipelines finished
func (c *Config) PlatformProductsDir(sdk string) string {
	return filepath.Join(c.ProductsDir, string(c.Mode), sdk)
}
