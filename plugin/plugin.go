// SPDX-License-Identifier: Apache-2.0

package plugin

import "github.com/opensbom-generator/spmkit/meta"

// PackageManager is the external resolver/compiler toolchain spmkit drives
type PackageManager interface {
	GetMetadata() Metadata
	GetVersion() (string, error)
	Resolve(opts ResolveOptions) error
	Build(opts BuildOptions) error
	ShowDependencies(opts PackageOptions) (*meta.DependencyGraphNode, error)
	SDKPath(sdk string) (string, error)
	XcodeVersion() (string, error)
	CheckToolsVersion(toolsVersion string) error
	CreateUniversalBinary(output string, inputs []string) error
}

// Metadata
type Metadata struct {
	Name       string
	Slug       string
	Manifest   []string
	ModulePath []string
}

// PackageOptions locate a package and the directories the tool may use
type PackageOptions struct {
	PackageDir  string
	ScratchDir  string
	CacheDir    string
	ConfigDir   string
	SecurityDir string
	// NetrcFile is passed through for authenticated downloads
	NetrcFile string
}

// ResolveOptions ...
type ResolveOptions struct {
	PackageOptions
}

// BuildOptions ...
type BuildOptions struct {
	PackageOptions
	Target     meta.CompileTarget
	MinVersion string
	Mode       meta.BuildMode
}

// NewPackageOptions fills the shared directories from dirs
func NewPackageOptions(packageDir, scratchDir string, dirs meta.PackageDirectories, netrc string) PackageOptions {
	return PackageOptions{
		PackageDir:  packageDir,
		ScratchDir:  scratchDir,
		CacheDir:    dirs.CacheDir,
		ConfigDir:   dirs.ConfigDir,
		SecurityDir: dirs.SecurityDir,
		NetrcFile:   netrc,
	}
}
