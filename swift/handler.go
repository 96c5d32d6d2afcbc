// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/plugin"
)

type Swift struct {
	metadata plugin.Metadata
	exec     helper.Executor

	mu           sync.Mutex
	sdkPaths     map[string]*sdkLookup
	version      string
	xcodeVersion string
}

// sdkLookup serializes the lookups of one SDK
type sdkLookup struct {
	mu   sync.Mutex
	path string
}

const (
	ManifestFile   string = meta.ManifestFile
	BuildDirectory string = ".build"
)

// New creates a Swift Package Manager driver running tools through exec
func New(exec helper.Executor) *Swift {
	return &Swift{
		metadata: plugin.Metadata{
			Name:       "Swift Package Manager",
			Slug:       "swift",
			Manifest:   []string{ManifestFile},
			ModulePath: []string{BuildDirectory},
		},
		exec:     exec,
		sdkPaths: map[string]*sdkLookup{},
	}
}

// GetVersion returns Swift language version. The answer is cached for
// the lifetime of m.
func (m *Swift) GetVersion() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.version != "" {
		return m.version, nil
	}
	res, err := m.run("swift", []string{"--version"}, "")
	if err != nil {
		return "", err
	}
	m.version = strings.TrimSpace(res.Stdout)
	return m.version, nil
}

// GetMetadata returns the package manager description
func (m *Swift) GetMetadata() plugin.Metadata {
	return m.metadata
}

// Resolve pins the package dependencies, refreshing Package.resolved
func (m *Swift) Resolve(opts plugin.ResolveOptions) error {
	args := append([]string{"package", "resolve"}, packageArgs(opts.PackageOptions)...)
	_, err := m.run("swift", args, opts.PackageDir)
	return err
}

// Build compiles the package for one compile target
func (m *Swift) Build(opts plugin.BuildOptions) error {
	sdkPath, err := m.SDKPath(opts.Target.SDK())
	if err != nil {
		return err
	}

	args := []string{
		"--sdk", "macosx",
		"swift", "build",
	}
	args = append(args, packageArgs(opts.PackageOptions)...)
	args = append(args,
		"--sdk", sdkPath,
		"--triple", opts.Target.Triple(opts.MinVersion),
		"-c", string(opts.Mode),
	)

	_, err = m.run("xcrun", args, opts.PackageDir)
	return err
}

// ShowDependencies dumps the resolved dependency graph of the package
func (m *Swift) ShowDependencies(opts plugin.PackageOptions) (*meta.DependencyGraphNode, error) {
	args := append([]string{"package", "show-dependencies", "--format", "json"}, packageArgs(opts)...)
	res, err := m.run("swift", args, opts.PackageDir)
	if err != nil {
		return nil, err
	}

	var root PackageDependency
	if err := json.NewDecoder(bytes.NewReader([]byte(jsonPayload(res.Stdout)))).Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding dependency graph: %w", err)
	}

	node := root.Node()
	logrus.Debugf("dependency graph of %s has %d direct dependencies", node.Name, len(node.Dependencies))
	return &node, nil
}

func packageArgs(opts plugin.PackageOptions) []string {
	var args []string
	if opts.PackageDir != "" {
		args = append(args, "--package-path", opts.PackageDir)
	}
	if opts.ScratchDir != "" {
		args = append(args, "--scratch-path", opts.ScratchDir)
	}
	if opts.CacheDir != "" {
		args = append(args, "--cache-path", opts.CacheDir)
	}
	if opts.ConfigDir != "" {
		args = append(args, "--config-path", opts.ConfigDir)
	}
	if opts.SecurityDir != "" {
		args = append(args, "--security-path", opts.SecurityDir)
	}
	if opts.NetrcFile != "" {
		args = append(args, "--netrc-file", opts.NetrcFile)
	}
	return args
}

// jsonPayload drops anything the tool printed before the JSON document,
// such as fetch progress on older toolchains
func jsonPayload(output string) string {
	if i := strings.IndexByte(output, '{'); i > 0 {
		return output[i:]
	}
	return output
}

func (m *Swift) run(name string, args []string, dir string) (*helper.Result, error) {
	res, err := m.exec.Execute(name, args, dir)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, &ToolError{
			Command:  strings.Join(append([]string{name}, args...), " "),
			ExitCode: res.ExitCode,
			Output:   res.Combined(),
		}
	}
	return res, nil
}
