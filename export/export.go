// SPDX-License-Identifier: Apache-2.0

// Package export generates what the consuming app project needs: the
// umbrella package re-exporting selected products, xcconfig fragments
// linking the compiled frameworks, and cinterop definition files.
package export

import (
	"fmt"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/swift"
)

// IncludeList returns the product and binary names the umbrella package
// references: products flagged for the exported package and binaries
// exported to Kotlin.
func IncludeList(decls dependency.Declarations) []string {
	names := append([]string{}, decls.IncludedProductNames()...)
	c := &binaryNames{}
	for _, d := range decls.Exportable() {
		_ = d.Accept(c)
	}
	return append(names, c.names...)
}

type binaryNames struct {
	names []string
}

func (c *binaryNames) VisitLocalBinary(d *dependency.LocalBinary) error {
	c.names = append(c.names, d.Name())
	return nil
}

func (c *binaryNames) VisitRemoteBinary(d *dependency.RemoteBinary) error {
	c.names = append(c.names, d.Name())
	return nil
}

func (c *binaryNames) VisitLocalPackage(*dependency.LocalPackage) error   { return nil }
func (c *binaryNames) VisitRemotePackage(*dependency.RemotePackage) error { return nil }

// WriteExportManifest writes the umbrella package into dir: its manifest
// and the placeholder source its single target needs. It reports whether
// the manifest changed.
func WriteExportManifest(dir string, deps []dependency.Dependency, opts swift.ManifestOptions) (bool, error) {
	opts.Export = true
	if opts.Include == nil {
		opts.Include = []string{}
	}
	manifest, err := swift.Synthesize(deps, opts)
	if err != nil {
		return false, fmt.Errorf("synthesizing export manifest: %w", err)
	}
	changed, err := swift.WriteManifest(dir, manifest)
	if err != nil {
		return false, err
	}
	if err := swift.EnsureSources(meta.SourcesDir(dir, opts.Name), ""); err != nil {
		return changed, err
	}
	return changed, nil
}
