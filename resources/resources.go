// SPDX-License-Identifier: Apache-2.0

// Package resources collects the frameworks and resource bundles a package
// build produced so they can be shipped with the consuming app.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"howett.net/plist"

	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
)

const (
	frameworkExt = ".framework"
	bundleExt    = ".bundle"
	infoPlist    = "Info.plist"

	// FrameworksDirectory is where frameworks are staged below the base directory
	FrameworksDirectory = "Frameworks"
)

// SystemType maps an Xcode platform name (e.g. iphonesimulator) to the
// system type used in build directory names
func SystemType(platformName string) (string, error) {
	name := strings.ToLower(platformName)
	switch {
	case strings.Contains(name, "iphone"):
		return meta.SystemIOS, nil
	case strings.Contains(name, "watch"):
		return meta.SystemWatchOS, nil
	case strings.Contains(name, "mac"):
		return meta.SystemMacOS, nil
	case strings.Contains(name, "tv"):
		return meta.SystemTvOS, nil
	}
	return "", &ConfigError{Err: ErrNoSystemType, Detail: fmt.Sprintf("platform %q", platformName)}
}

// SimulatorSuffix is "-simulator" for simulator platforms and empty otherwise
func SimulatorSuffix(platformName string) string {
	if strings.Contains(strings.ToLower(platformName), "simulator") {
		return "-simulator"
	}
	return ""
}

// BuildDir returns the build output directory of a platform inside scratchDir
func BuildDir(scratchDir, platformName, archs string, mode meta.BuildMode) (string, error) {
	systemType, err := SystemType(platformName)
	if err != nil {
		return "", err
	}
	simulator := SimulatorSuffix(platformName) != ""
	return filepath.Join(scratchDir, meta.BuildDirName(archs, systemType, simulator, mode)), nil
}

// Resources are the frameworks and bundles found in one build directory
type Resources struct {
	BuildDir   string
	Frameworks []meta.FrameworkResource
	Bundles    []meta.BundleResource
}

// Collect scans the build output of platformName/archs/mode below
// scratchDir. Bundles keep directory order; the bundles nested in a
// framework take the framework's place in that order.
func Collect(scratchDir, platformName, archs string, mode meta.BuildMode) (*Resources, error) {
	buildDir, err := BuildDir(scratchDir, platformName, archs, mode)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(buildDir)
	if err != nil || !info.IsDir() {
		return nil, &ConfigError{Err: ErrNoBuildDir, Detail: buildDir}
	}

	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", buildDir, err)
	}

	res := &Resources{BuildDir: buildDir}
	for _, e := range entries {
		path := filepath.Join(buildDir, e.Name())
		if !isDir(path) {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case frameworkExt:
			res.Bundles = append(res.Bundles, nestedBundles(path)...)
			if fw, ok := readFramework(path); ok {
				res.Frameworks = append(res.Frameworks, fw)
			}
		case bundleExt:
			res.Bundles = append(res.Bundles, readBundle(path))
		}
	}
	return res, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func nestedBundles(framework string) []meta.BundleResource {
	entries, err := os.ReadDir(framework)
	if err != nil {
		logrus.Warnf("unable to read %s: %v", framework, err)
		return nil
	}
	var bundles []meta.BundleResource
	for _, e := range entries {
		path := filepath.Join(framework, e.Name())
		if filepath.Ext(e.Name()) == bundleExt && isDir(path) {
			bundles = append(bundles, readBundle(path))
		}
	}
	return bundles
}

type bundleInfo struct {
	Executable string `plist:"CFBundleExecutable"`
}

// executableName reads CFBundleExecutable from the Info.plist of a bundle.
// Both the flat (iOS) and the versioned (macOS) layouts are supported.
func executableName(dir string) string {
	for _, p := range []string{
		filepath.Join(dir, infoPlist),
		filepath.Join(dir, "Resources", infoPlist),
		filepath.Join(dir, "Contents", infoPlist),
	} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var info bundleInfo
		if _, err := plist.Unmarshal(data, &info); err != nil {
			logrus.Warnf("unable to parse %s: %v", p, err)
			continue
		}
		if info.Executable != "" {
			return info.Executable
		}
	}
	return ""
}

func binaryFile(dir, executable string) string {
	if executable == "" {
		return ""
	}
	for _, p := range []string{
		filepath.Join(dir, executable),
		filepath.Join(dir, "Versions", "A", executable),
		filepath.Join(dir, "Contents", "MacOS", executable),
	} {
		if helper.Exists(p) {
			return p
		}
	}
	return ""
}

func readFramework(dir string) (meta.FrameworkResource, bool) {
	executable := executableName(dir)
	if executable == "" {
		executable = strings.TrimSuffix(filepath.Base(dir), frameworkExt)
		logrus.Debugf("no executable name in %s, assuming %s", dir, executable)
	}
	binary := binaryFile(dir, executable)
	if binary == "" {
		logrus.Warnf("framework %s has no binary %s, skipping", dir, executable)
		return meta.FrameworkResource{}, false
	}
	return meta.FrameworkResource{Directory: dir, BinaryFile: binary, Name: executable}, true
}

// resource bundles usually have no executable, BinaryFile is empty then
func readBundle(dir string) meta.BundleResource {
	return meta.BundleResource{
		Directory:  dir,
		BinaryFile: binaryFile(dir, executableName(dir)),
		Name:       filepath.Base(dir),
	}
}

// Paths are the staging locations below a base directory
type Paths struct {
	BundleDir     string
	FrameworksDir string
}

// StagingPaths returns where bundles and frameworks go below baseDir
func StagingPaths(baseDir string) Paths {
	return Paths{
		BundleDir:     baseDir,
		FrameworksDir: filepath.Join(baseDir, FrameworksDirectory),
	}
}

// CopyTo stages the resources below baseDir, replacing earlier copies
func (r *Resources) CopyTo(baseDir string) (Paths, error) {
	paths := StagingPaths(baseDir)
	for _, b := range r.Bundles {
		if err := replaceDir(b.Directory, filepath.Join(paths.BundleDir, filepath.Base(b.Directory))); err != nil {
			return paths, fmt.Errorf("staging bundle %s: %w", b.Name, err)
		}
	}
	for _, fw := range r.Frameworks {
		if err := replaceDir(fw.Directory, filepath.Join(paths.FrameworksDir, filepath.Base(fw.Directory))); err != nil {
			return paths, fmt.Errorf("staging framework %s: %w", fw.Name, err)
		}
	}
	return paths, nil
}

// FrameworkNames returns the names of the collected frameworks
func (r *Resources) FrameworkNames() []string {
	names := make([]string, 0, len(r.Frameworks))
	for _, fw := range r.Frameworks {
		names = append(names, fw.Name)
	}
	return names
}

func replaceDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return helper.CopyDir(src, dst)
}

// Combiner merges single-architecture binaries into one binary at output
type Combiner func(output string, inputs []string) error

// Merge stages the per-target copies below staged into dst. A framework
// found in several copies keeps the first copy's layout and gets one
// binary holding every slice; a bundle is taken from the first copy
// that has it.
func Merge(dst string, staged []Paths, combine Combiner) (Paths, error) {
	out := StagingPaths(dst)

	seen := map[string]bool{}
	for _, p := range staged {
		for _, dir := range subdirs(p.BundleDir, bundleExt) {
			name := filepath.Base(dir)
			if seen[name] {
				continue
			}
			seen[name] = true
			if err := replaceDir(dir, filepath.Join(out.BundleDir, name)); err != nil {
				return out, fmt.Errorf("merging bundle %s: %w", name, err)
			}
		}
	}

	var order []string
	slices := map[string][]meta.FrameworkResource{}
	for _, p := range staged {
		for _, dir := range subdirs(p.FrameworksDir, frameworkExt) {
			fw, ok := readFramework(dir)
			if !ok {
				continue
			}
			name := filepath.Base(dir)
			if _, ok := slices[name]; !ok {
				order = append(order, name)
			}
			slices[name] = append(slices[name], fw)
		}
	}

	for _, name := range order {
		first := slices[name][0]
		target := filepath.Join(out.FrameworksDir, name)
		if err := replaceDir(first.Directory, target); err != nil {
			return out, fmt.Errorf("merging framework %s: %w", first.Name, err)
		}
		if len(slices[name]) == 1 {
			continue
		}
		rel, err := filepath.Rel(first.Directory, first.BinaryFile)
		if err != nil {
			return out, err
		}
		inputs := make([]string, 0, len(slices[name]))
		for _, fw := range slices[name] {
			inputs = append(inputs, fw.BinaryFile)
		}
		logrus.Debugf("merging %d slices of %s", len(inputs), first.Name)
		if err := combine(filepath.Join(target, rel), inputs); err != nil {
			return out, fmt.Errorf("merging framework %s: %w", first.Name, err)
		}
	}
	return out, nil
}

// subdirs lists the directories in dir with extension ext, in name order.
// A missing dir has none.
func subdirs(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("unable to read %s: %v", dir, err)
		}
		return nil
	}
	var dirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if filepath.Ext(e.Name()) == ext && isDir(path) {
			dirs = append(dirs, path)
		}
	}
	return dirs
}
