// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// SDKPath returns the path of the SDK named sdk (e.g. iphonesimulator).
// The answer is cached per SDK for the lifetime of m; lookups of
// different SDKs run concurrently.
func (m *Swift) SDKPath(sdk string) (string, error) {
	m.mu.Lock()
	lookup, ok := m.sdkPaths[sdk]
	if !ok {
		lookup = &sdkLookup{}
		m.sdkPaths[sdk] = lookup
	}
	m.mu.Unlock()

	lookup.mu.Lock()
	defer lookup.mu.Unlock()

	if lookup.path != "" {
		return lookup.path, nil
	}

	res, err := m.run("xcrun", []string{"--sdk", sdk, "--show-sdk-path"}, "")
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", errSDKPath, sdk, err)
	}
	p := strings.TrimSpace(res.Stdout)
	if p == "" {
		return "", fmt.Errorf("%w for %s", errSDKPath, sdk)
	}

	lookup.path = p
	return p, nil
}

// XcodeVersion returns the version of the selected Xcode, e.g. 16.1
func (m *Swift) XcodeVersion() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.xcodeVersion != "" {
		return m.xcodeVersion, nil
	}

	res, err := m.run("xcodebuild", []string{"-version"}, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", errXcodeVersion, err)
	}
	version := extractVersion(xcodeVersionPattern, res.Stdout)
	if version == "" {
		return "", errXcodeVersion
	}

	m.xcodeVersion = version
	return version, nil
}

// CheckToolsVersion fails when the installed toolchain is known to be
// older than toolsVersion. Toolchains whose version cannot be read pass.
func (m *Swift) CheckToolsVersion(toolsVersion string) error {
	out, err := m.GetVersion()
	if err != nil {
		logrus.Warnf("unable to read swift version: %v", err)
		return nil
	}
	swiftVersion := extractVersion(swiftVersionPattern, out)
	if !SupportsToolsVersion(swiftVersion, toolsVersion) {
		return fmt.Errorf("%w: swift %s, tools version %s", errToolsVersion, swiftVersion, toolsVersion)
	}
	return nil
}

// CreateUniversalBinary merges the single-architecture binaries inputs
// into output
func (m *Swift) CreateUniversalBinary(output string, inputs []string) error {
	if len(inputs) == 0 {
		return errNoSlices
	}
	args := append([]string{"lipo", "-create"}, inputs...)
	args = append(args, "-output", output)
	_, err := m.run("xcrun", args, "")
	return err
}
