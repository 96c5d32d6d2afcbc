// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/opensbom-generator/spmkit/meta"
)

// Builder accumulates dependency declarations in order. Errors are
// collected and reported by Build.
type Builder struct {
	deps  []Dependency
	names map[string]struct{}
	errs  []error
}

func NewBuilder() *Builder {
	return &Builder{names: map[string]struct{}{}}
}

// AddLocalBinary declares an xcframework on disk
func (b *Builder) AddLocalBinary(path string, binary Binary) *Builder {
	if path == "" {
		b.fail(binary.BinaryName, errEmptyPath)
		return b
	}
	b.add(&LocalBinary{Binary: binary.clone(), Path: path})
	return b
}

// AddRemoteBinary declares a downloadable xcframework archive
func (b *Builder) AddRemoteBinary(url, checksum string, binary Binary) *Builder {
	switch {
	case url == "":
		b.fail(binary.BinaryName, errEmptyURL)
		return b
	case checksum == "":
		b.fail(binary.BinaryName, errMissingChecksum)
		return b
	}
	b.add(&RemoteBinary{Binary: binary.clone(), URL: url, Checksum: checksum})
	return b
}

// AddLocalPackage declares a Swift package on disk
func (b *Builder) AddLocalPackage(path, name string, products ProductSelector) *Builder {
	if path == "" {
		b.fail(name, errEmptyPath)
		return b
	}
	if err := validateProducts(products); err != nil {
		b.fail(name, err)
		return b
	}
	b.add(&LocalPackage{PackageName: name, Path: path, Products: products.clone()})
	return b
}

// AddRemotePackage declares a Swift package fetched from url, pinned by kind/revision
func (b *Builder) AddRemotePackage(url, name string, kind RevisionKind, revision string, products ProductSelector) *Builder {
	if url == "" {
		b.fail(name, errEmptyURL)
		return b
	}
	if revision == "" {
		b.fail(name, errEmptyRevision)
		return b
	}
	if kind == RevisionVersion && !isExactVersion(revision) {
		b.fail(name, fmt.Errorf("%w %q", errInvalidVersion, revision))
		return b
	}
	if err := validateProducts(products); err != nil {
		b.fail(name, err)
		return b
	}
	b.add(&RemotePackage{PackageName: name, URL: url, Kind: kind, Revision: revision, Products: products.clone()})
	return b
}

func (b *Builder) add(d Dependency) {
	name := d.Name()
	if name == "" {
		b.errs = append(b.errs, errEmptyName)
		return
	}
	if _, ok := b.names[name]; ok {
		b.fail(name, errDuplicateName)
		return
	}
	b.names[name] = struct{}{}
	b.deps = append(b.deps, d)
}

func (b *Builder) fail(name string, err error) {
	b.errs = append(b.errs, fmt.Errorf("%s: %w", name, err))
}

// Build freezes the declarations. The builder can keep being used; later
// additions do not affect the returned value.
func (b *Builder) Build() (Declarations, error) {
	if len(b.errs) > 0 {
		return Declarations{}, errors.Join(b.errs...)
	}
	return Declarations{deps: CloneAll(b.deps)}, nil
}

func validateProducts(products ProductSelector) error {
	if len(products) == 0 {
		return errNoProducts
	}
	for _, p := range products {
		if p.Name == "" {
			return errEmptyProduct
		}
	}
	return nil
}

func isExactVersion(v string) bool {
	// semver requires a "v" prefix
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v) && semver.Canonical(v) == v
}

// Declarations is a frozen, ordered set of dependencies
type Declarations struct {
	deps []Dependency
}

// All returns a copy of the dependencies in declaration order
func (d Declarations) All() []Dependency {
	return CloneAll(d.deps)
}

func (d Declarations) Len() int { return len(d.deps) }

// Exportable is FilterExportable applied to the declarations
func (d Declarations) Exportable() []Dependency {
	return FilterExportable(d.deps)
}

// IncludedProductNames returns the names of the products flagged for the
// exported package, in declaration order
func (d Declarations) IncludedProductNames() []string {
	c := &includeCollector{}
	for _, dep := range d.deps {
		_ = dep.Accept(c)
	}
	return c.names
}

type includeCollector struct {
	names []string
}

func (c *includeCollector) products(products ProductSelector) {
	for _, p := range products {
		if p.IncludeInExportedPackage {
			c.names = append(c.names, p.Name)
		}
	}
}

// binaries have no product flag of their own
func (c *includeCollector) VisitLocalBinary(*LocalBinary) error   { return nil }
func (c *includeCollector) VisitRemoteBinary(*RemoteBinary) error { return nil }

func (c *includeCollector) VisitLocalPackage(d *LocalPackage) error {
	c.products(d.Products)
	return nil
}

func (c *includeCollector) VisitRemotePackage(d *RemotePackage) error {
	c.products(d.Products)
	return nil
}

// Fingerprint is a structural digest of the ordered declarations. Equal
// declarations always produce the same fingerprint.
func (d Declarations) Fingerprint() string {
	w := &fingerprinter{}
	for _, dep := range d.deps {
		_ = dep.Accept(w)
	}
	return meta.SHA256([]byte(w.String()))
}

type fingerprinter struct {
	strings.Builder
}

func (f *fingerprinter) line(fields ...string) {
	f.WriteString(strings.Join(fields, "\x1f"))
	f.WriteByte('\n')
}

func (f *fingerprinter) binary(kind string, b Binary, location ...string) {
	fields := append([]string{kind, b.BinaryName, fmt.Sprint(b.ExportToKotlin)}, location...)
	fields = append(fields, strings.Join(b.LinkerOpts, " "), strings.Join(b.CompilerOpts, " "))
	f.line(fields...)
}

func (f *fingerprinter) products(products ProductSelector) {
	for _, p := range products {
		f.line("product", p.Name, p.Alias, fmt.Sprint(p.ExportToKotlin), fmt.Sprint(p.IncludeInExportedPackage),
			strings.Join(p.LinkerOpts, " "), strings.Join(p.CompilerOpts, " "))
	}
}

func (f *fingerprinter) VisitLocalBinary(d *LocalBinary) error {
	f.binary("local-binary", d.Binary, d.Path)
	return nil
}

func (f *fingerprinter) VisitRemoteBinary(d *RemoteBinary) error {
	f.binary("remote-binary", d.Binary, d.URL, d.Checksum)
	return nil
}

func (f *fingerprinter) VisitLocalPackage(d *LocalPackage) error {
	f.line("local-package", d.PackageName, d.Path)
	f.products(d.Products)
	return nil
}

func (f *fingerprinter) VisitRemotePackage(d *RemotePackage) error {
	f.line("remote-package", d.PackageName, d.URL, d.Kind.String(), d.Revision)
	f.products(d.Products)
	return nil
}
