// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"fmt"
	"path/filepath"
	"strings"
)

// System types as they appear in toolchain triples and build directories
const (
	SystemIOS     = "ios"
	SystemWatchOS = "watchos"
	SystemMacOS   = "macosx"
	SystemTvOS    = "tvos"
)

// CompileTarget is one platform/architecture combination a package is built for
type CompileTarget string

const (
	IOSArm64              CompileTarget = "ios_arm64"
	IOSSimulatorArm64     CompileTarget = "ios_simulator_arm64"
	IOSX64                CompileTarget = "ios_x64"
	MacOSArm64            CompileTarget = "macos_arm64"
	MacOSX64              CompileTarget = "macos_x64"
	TvOSArm64             CompileTarget = "tvos_arm64"
	TvOSSimulatorArm64    CompileTarget = "tvos_simulator_arm64"
	TvOSX64               CompileTarget = "tvos_x64"
	WatchOSArm64          CompileTarget = "watchos_arm64"
	WatchOSArm32          CompileTarget = "watchos_arm32"
	WatchOSDeviceArm64    CompileTarget = "watchos_device_arm64"
	WatchOSSimulatorArm64 CompileTarget = "watchos_simulator_arm64"
	WatchOSX64            CompileTarget = "watchos_x64"
)

type targetInfo struct {
	arch       string
	sdk        string
	systemType string
	simulator  bool
}

var targets = map[CompileTarget]targetInfo{
	IOSArm64:              {"arm64", "iphoneos", SystemIOS, false},
	IOSSimulatorArm64:     {"arm64", "iphonesimulator", SystemIOS, true},
	IOSX64:                {"x86_64", "iphonesimulator", SystemIOS, true},
	MacOSArm64:            {"arm64", "macosx", SystemMacOS, false},
	MacOSX64:              {"x86_64", "macosx", SystemMacOS, false},
	TvOSArm64:             {"arm64", "appletvos", SystemTvOS, false},
	TvOSSimulatorArm64:    {"arm64", "appletvsimulator", SystemTvOS, true},
	TvOSX64:               {"x86_64", "appletvsimulator", SystemTvOS, true},
	WatchOSArm64:          {"arm64_32", "watchos", SystemWatchOS, false},
	WatchOSArm32:          {"armv7k", "watchos", SystemWatchOS, false},
	WatchOSDeviceArm64:    {"arm64", "watchos", SystemWatchOS, false},
	WatchOSSimulatorArm64: {"arm64", "watchsimulator", SystemWatchOS, true},
	WatchOSX64:            {"x86_64", "watchsimulator", SystemWatchOS, true},
}

// ParseCompileTarget returns the CompileTarget named s
func ParseCompileTarget(s string) (CompileTarget, error) {
	t := CompileTarget(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := targets[t]; !ok {
		return "", fmt.Errorf("unknown compile target %q", s)
	}
	return t, nil
}

func (t CompileTarget) info() targetInfo {
	info, ok := targets[t]
	if !ok {
		panic(fmt.Sprintf("unknown compile target %q", string(t)))
	}
	return info
}

func (t CompileTarget) String() string { return string(t) }

// Arch is the architecture name used in triples and build directories
func (t CompileTarget) Arch() string { return t.info().arch }

// SDK is the Xcode platform name (PLATFORM_NAME) of the target
func (t CompileTarget) SDK() string { return t.info().sdk }

func (t CompileTarget) SystemType() string { return t.info().systemType }

func (t CompileTarget) Simulator() bool { return t.info().simulator }

// Triple returns the toolchain triple, e.g. arm64-apple-ios16.0-simulator
func (t CompileTarget) Triple(minVersion string) string {
	info := t.info()
	triple := info.arch + "-apple-" + info.systemType + minVersion
	if info.simulator {
		triple += "-simulator"
	}
	return triple
}

// BuildDir is the build output directory of the target relative to a scratch directory
func (t CompileTarget) BuildDir(mode BuildMode) string {
	info := t.info()
	return BuildDirName(info.arch, info.systemType, info.simulator, mode)
}

// BuildDirName returns <archs>-apple-<systemType>[-simulator]/<mode>
func BuildDirName(archs, systemType string, simulator bool, mode BuildMode) string {
	name := archs + "-apple-" + systemType
	if simulator {
		name += "-simulator"
	}
	return filepath.Join(name, string(mode))
}

// BuildMode is the optimization mode passed to the compiler
type BuildMode string

const (
	Debug   BuildMode = "debug"
	Release BuildMode = "release"
)

// BuildModes lists every mode in a stable order
var BuildModes = []BuildMode{Debug, Release}

func ParseBuildMode(s string) (BuildMode, error) {
	switch BuildMode(strings.ToLower(strings.TrimSpace(s))) {
	case Debug:
		return Debug, nil
	case Release:
		return Release, nil
	}
	return "", fmt.Errorf("unknown build mode %q", s)
}

// Platforms holds the minimum deployment version per OS. Empty means the
// OS is not declared in the manifest.
type Platforms struct {
	IOS     string
	MacOS   string
	TvOS    string
	WatchOS string
}

// MinVersion returns the declared minimum version for a system type
func (p Platforms) MinVersion(systemType string) string {
	switch systemType {
	case SystemIOS:
		return p.IOS
	case SystemMacOS:
		return p.MacOS
	case SystemTvOS:
		return p.TvOS
	case SystemWatchOS:
		return p.WatchOS
	}
	return ""
}
