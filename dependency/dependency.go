// SPDX-License-Identifier: Apache-2.0

// Package dependency models the native dependencies declared for a
// package: prebuilt binaries and Swift packages, local or remote.
package dependency

// Dependency is one declared dependency. The set of implementations is
// closed; consumers handle every variant through Visitor.
type Dependency interface {
	// Name is the identity of the dependency, unique within a declaration set
	Name() string
	Accept(v Visitor) error

	clone() Dependency
}

// Visitor has one method per Dependency variant
type Visitor interface {
	VisitLocalBinary(d *LocalBinary) error
	VisitRemoteBinary(d *RemoteBinary) error
	VisitLocalPackage(d *LocalPackage) error
	VisitRemotePackage(d *RemotePackage) error
}

// Product is one product of a package dependency
type Product struct {
	Name string
	// Alias renames the module exposed to Kotlin
	Alias                    string
	ExportToKotlin           bool
	LinkerOpts               []string
	CompilerOpts             []string
	IncludeInExportedPackage bool
}

// ModuleName is the alias if set, the product name otherwise
func (p Product) ModuleName() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Name
}

// ProductSelector is the ordered list of products used from a package
type ProductSelector []Product

func (s ProductSelector) clone() ProductSelector {
	if s == nil {
		return nil
	}
	out := make(ProductSelector, len(s))
	for i, p := range s {
		p.LinkerOpts = append([]string(nil), p.LinkerOpts...)
		p.CompilerOpts = append([]string(nil), p.CompilerOpts...)
		out[i] = p
	}
	return out
}

// Exportable returns the products exported to Kotlin, as a new selector
func (s ProductSelector) Exportable() ProductSelector {
	var out ProductSelector
	for _, p := range s.clone() {
		if p.ExportToKotlin {
			out = append(out, p)
		}
	}
	return out
}

// Binary fields shared by local and remote binaries
type Binary struct {
	BinaryName     string
	ExportToKotlin bool
	LinkerOpts     []string
	CompilerOpts   []string
}

func (b Binary) clone() Binary {
	b.LinkerOpts = append([]string(nil), b.LinkerOpts...)
	b.CompilerOpts = append([]string(nil), b.CompilerOpts...)
	return b
}

// LocalBinary is a prebuilt xcframework on disk
type LocalBinary struct {
	Binary
	Path string
}

func (d *LocalBinary) Name() string { return d.BinaryName }

func (d *LocalBinary) Accept(v Visitor) error { return v.VisitLocalBinary(d) }

func (d *LocalBinary) clone() Dependency {
	return &LocalBinary{Binary: d.Binary.clone(), Path: d.Path}
}

// RemoteBinary is a prebuilt xcframework archive downloaded by the package manager
type RemoteBinary struct {
	Binary
	URL      string
	Checksum string
}

func (d *RemoteBinary) Name() string { return d.BinaryName }

func (d *RemoteBinary) Accept(v Visitor) error { return v.VisitRemoteBinary(d) }

func (d *RemoteBinary) clone() Dependency {
	return &RemoteBinary{Binary: d.Binary.clone(), URL: d.URL, Checksum: d.Checksum}
}

// LocalPackage is a Swift package on disk
type LocalPackage struct {
	PackageName string
	Path        string
	Products    ProductSelector
}

func (d *LocalPackage) Name() string { return d.PackageName }

func (d *LocalPackage) Accept(v Visitor) error { return v.VisitLocalPackage(d) }

func (d *LocalPackage) clone() Dependency {
	return &LocalPackage{PackageName: d.PackageName, Path: d.Path, Products: d.Products.clone()}
}

// RevisionKind selects how a remote package revision is pinned
type RevisionKind int

const (
	RevisionVersion RevisionKind = iota
	RevisionBranch
	RevisionCommit
)

func (k RevisionKind) String() string {
	switch k {
	case RevisionVersion:
		return "version"
	case RevisionBranch:
		return "branch"
	case RevisionCommit:
		return "commit"
	}
	return "unknown"
}

// RemotePackage is a Swift package fetched from a git URL
type RemotePackage struct {
	PackageName string
	URL         string
	Kind        RevisionKind
	// Revision is an exact version, a branch name or a commit hash depending on Kind
	Revision string
	Products ProductSelector
}

func (d *RemotePackage) Name() string { return d.PackageName }

func (d *RemotePackage) Accept(v Visitor) error { return v.VisitRemotePackage(d) }

func (d *RemotePackage) clone() Dependency {
	c := *d
	c.Products = d.Products.clone()
	return &c
}

// CloneAll returns a deep copy of deps
func CloneAll(deps []Dependency) []Dependency {
	out := make([]Dependency, len(deps))
	for i, d := range deps {
		out[i] = d.clone()
	}
	return out
}
