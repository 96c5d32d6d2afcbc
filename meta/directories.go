// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"path/filepath"
)

const (
	ManifestFile     = "Package.swift"
	ResolvedFile     = "Package.resolved"
	WorkspaceState   = "workspace-state.json"
	SourcesDirectory = "Sources"

	originalScratch = "original"
)

// PackageDirectories are the directories one synthesis and build cycle
// works in. The scratch directory outlives the cycle so the compiler can
// build incrementally.
type PackageDirectories struct {
	WorkingDir  string
	ScratchDir  string
	CacheDir    string
	ConfigDir   string
	SecurityDir string
}

// PrimaryDir holds the primary manifest, resolved once for all targets
func (d PackageDirectories) PrimaryDir() string {
	return filepath.Join(d.WorkingDir, "primary")
}

// OriginalScratchDir is the scratch directory of the primary package. It is
// copied forward into targets that have no scratch directory yet.
func (d PackageDirectories) OriginalScratchDir() string {
	return filepath.Join(d.ScratchDir, originalScratch)
}

// TargetScratchDir is the scratch directory owned by one compile target
func (d PackageDirectories) TargetScratchDir(t CompileTarget) string {
	return filepath.Join(d.ScratchDir, string(t))
}

// TargetWorkingDir holds the manifest and sources of one compile target
func (d PackageDirectories) TargetWorkingDir(t CompileTarget) string {
	return filepath.Join(d.WorkingDir, "targets", string(t))
}

// ArtifactsDir is the shared directory compiled artifacts are staged in
func (d PackageDirectories) ArtifactsDir(t CompileTarget) string {
	return filepath.Join(d.WorkingDir, "artifacts", string(t))
}

// ExportDir holds the export (umbrella) package
func (d PackageDirectories) ExportDir() string {
	return filepath.Join(d.WorkingDir, "exported")
}

// StateDir holds fingerprints and caches spmkit writes next to a manifest
func StateDir(packageDir string) string {
	return filepath.Join(packageDir, ".spmkit")
}

// SourcesDir is the directory of the target named name inside a package dir
func SourcesDir(packageDir, name string) string {
	return filepath.Join(packageDir, SourcesDirectory, name)
}
