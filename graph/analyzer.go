// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/plugin"
)

// CacheFile is the name of the analysis cache inside the state directory
const CacheFile = "dependency-graph.toml"

var errNoGraph = errors.New("package manager returned no dependency graph")

// Dumper produces the dependency graph of a package
type Dumper interface {
	ShowDependencies(opts plugin.PackageOptions) (*meta.DependencyGraphNode, error)
}

// Analyzer dumps the dependency graph of a package and finds the public
// header folders of its dependencies
type Analyzer struct {
	dumper Dumper
}

func NewAnalyzer(dumper Dumper) *Analyzer {
	return &Analyzer{dumper: dumper}
}

// Options select the package to analyze
type Options struct {
	Package plugin.PackageOptions
	// Fingerprint of the declared dependencies the manifest was made from
	Fingerprint string
}

// Result of an analysis
type Result struct {
	Graph         meta.DependencyGraphNode
	PublicFolders []string
	// Cached is set when the graph was read from the cache file
	Cached bool
}

type cacheRecord struct {
	KeyFile       string                   `toml:"key_file"`
	Checksum      string                   `toml:"checksum"`
	Fingerprint   string                   `toml:"fingerprint"`
	PublicFolders []string                 `toml:"public_folders"`
	Graph         meta.DependencyGraphNode `toml:"graph"`
}

// Analyze returns the dependency graph of opts.Package. The graph dump is
// skipped when the cache was written for the same declarations and the same
// lock file content.
func (a *Analyzer) Analyze(ctx context.Context, opts Options) (*Result, error) {
	pkgDir := opts.Package.PackageDir
	cachePath := filepath.Join(meta.StateDir(pkgDir), CacheFile)
	keyFile := cacheKeyFile(pkgDir, opts.Package.ScratchDir)

	var checksum string
	if keyFile != "" {
		sum, err := meta.FileSHA256(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", keyFile, err)
		}
		checksum = sum

		if rec, ok := readCache(cachePath); ok &&
			rec.KeyFile == keyFile && rec.Checksum == checksum && rec.Fingerprint == opts.Fingerprint {
			logrus.Debugf("dependency graph of %s unchanged, using %s", pkgDir, cachePath)
			return &Result{Graph: rec.Graph, PublicFolders: rec.PublicFolders, Cached: true}, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := a.dumper.ShowDependencies(opts.Package)
	if err != nil {
		return nil, fmt.Errorf("dumping dependency graph: %w", err)
	}
	if root == nil {
		return nil, errNoGraph
	}

	res := &Result{Graph: *root, PublicFolders: GetPublicFolders(root)}

	// the dump may have created the lock file
	if keyFile == "" {
		keyFile = cacheKeyFile(pkgDir, opts.Package.ScratchDir)
		if keyFile != "" {
			if checksum, err = meta.FileSHA256(keyFile); err != nil {
				return nil, fmt.Errorf("reading %s: %w", keyFile, err)
			}
		}
	}
	if keyFile == "" {
		logrus.Debugf("no lock file for %s, dependency graph not cached", pkgDir)
		return res, nil
	}

	rec := cacheRecord{
		KeyFile:       keyFile,
		Checksum:      checksum,
		Fingerprint:   opts.Fingerprint,
		PublicFolders: res.PublicFolders,
		Graph:         res.Graph,
	}
	if err := writeCache(cachePath, &rec); err != nil {
		logrus.Warnf("unable to cache dependency graph: %v", err)
	}
	return res, nil
}

// cacheKeyFile returns the first existing of the lock files of the package
func cacheKeyFile(pkgDir, scratchDir string) string {
	candidates := []string{
		filepath.Join(pkgDir, meta.ResolvedFile),
		filepath.Join(pkgDir, ".swiftpm", "xcode", "package.xcworkspace", "xcshareddata", "swiftpm", meta.ResolvedFile),
	}
	if scratchDir != "" {
		candidates = append(candidates, filepath.Join(scratchDir, meta.WorkspaceState))
	}
	for _, c := range candidates {
		if helper.Exists(c) {
			return c
		}
	}
	return ""
}

func readCache(path string) (*cacheRecord, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	rec := &cacheRecord{}
	if err := toml.Unmarshal(data, rec); err != nil {
		logrus.Warnf("ignoring unreadable cache %s: %v", path, err)
		return nil, false
	}
	return rec, true
}

func writeCache(path string, rec *cacheRecord) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = helper.WriteFileIfChanged(path, data)
	return err
}
