// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/pkg/build"
	"github.com/opensbom-generator/spmkit/swift"
)

// Dependency kinds accepted in spmkit.yaml
const (
	KindLocalBinary   = "local_binary"
	KindRemoteBinary  = "remote_binary"
	KindLocalPackage  = "local_package"
	KindRemotePackage = "remote_package"
)

var (
	errUnknownKind = errors.New("unknown dependency kind")
	errRevision    = errors.New("remote package needs exactly one of version, branch or commit")
)

// Declarations builds the frozen dependency declarations
func (c *Config) Declarations() (dependency.Declarations, error) {
	b := dependency.NewBuilder()
	var errs []error
	for i, d := range c.Dependencies {
		if err := d.add(b); err != nil {
			errs = append(errs, fmt.Errorf("dependencies[%d] %s: %w", i, d.Name, err))
		}
	}
	decls, err := b.Build()
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return dependency.Declarations{}, errors.Join(errs...)
	}
	return decls, nil
}

func (d DependencyConfig) binary() dependency.Binary {
	return dependency.Binary{
		BinaryName:     d.Name,
		ExportToKotlin: d.ExportToKotlin,
		LinkerOpts:     d.LinkerOpts,
		CompilerOpts:   d.CompilerOpts,
	}
}

func (d DependencyConfig) products() dependency.ProductSelector {
	products := make(dependency.ProductSelector, 0, len(d.Products))
	for _, p := range d.Products {
		products = append(products, dependency.Product{
			Name:                     p.Name,
			Alias:                    p.Alias,
			ExportToKotlin:           p.ExportToKotlin,
			LinkerOpts:               p.LinkerOpts,
			CompilerOpts:             p.CompilerOpts,
			IncludeInExportedPackage: p.IncludeInExportedPackage,
		})
	}
	return products
}

func (d DependencyConfig) revision() (dependency.RevisionKind, string, error) {
	var kind dependency.RevisionKind
	var revision string
	set := 0
	if d.Version != "" {
		kind, revision = dependency.RevisionVersion, d.Version
		set++
	}
	if d.Branch != "" {
		kind, revision = dependency.RevisionBranch, d.Branch
		set++
	}
	if d.Commit != "" {
		kind, revision = dependency.RevisionCommit, d.Commit
		set++
	}
	if set != 1 {
		return 0, "", errRevision
	}
	return kind, revision, nil
}

func (d DependencyConfig) add(b *dependency.Builder) error {
	switch d.Kind {
	case KindLocalBinary:
		b.AddLocalBinary(d.Path, d.binary())
	case KindRemoteBinary:
		b.AddRemoteBinary(d.URL, d.Checksum, d.binary())
	case KindLocalPackage:
		b.AddLocalPackage(d.Path, d.Name, d.products())
	case KindRemotePackage:
		kind, revision, err := d.revision()
		if err != nil {
			return err
		}
		b.AddRemotePackage(d.URL, d.Name, kind, revision, d.products())
	default:
		return fmt.Errorf("%w %q", errUnknownKind, d.Kind)
	}
	return nil
}

func (l LanguageConfig) settings() meta.LanguageSettings {
	return meta.LanguageSettings{
		Defines:     l.Defines,
		SearchPaths: l.SearchPaths,
		UnsafeFlags: l.UnsafeFlags,
	}
}

// BuildConfig converts the loaded configuration for the orchestrator
func (c *Config) BuildConfig() (build.Config, error) {
	decls, err := c.Declarations()
	if err != nil {
		return build.Config{}, err
	}
	mode, err := meta.ParseBuildMode(c.Mode)
	if err != nil {
		return build.Config{}, err
	}
	targets := make([]meta.CompileTarget, 0, len(c.Targets))
	for _, name := range c.Targets {
		t, err := meta.ParseCompileTarget(name)
		if err != nil {
			return build.Config{}, err
		}
		targets = append(targets, t)
	}

	return build.Config{
		Declarations: decls,
		Manifest: swift.ManifestOptions{
			Name:         c.Name,
			ToolsVersion: c.ToolsVersion,
			Platforms: meta.Platforms{
				IOS:     c.Platforms.IOS,
				MacOS:   c.Platforms.MacOS,
				TvOS:    c.Platforms.TvOS,
				WatchOS: c.Platforms.WatchOS,
			},
			Settings: meta.TargetSettings{
				C:     c.Settings.C.settings(),
				Cxx:   c.Settings.Cxx.settings(),
				Swift: c.Settings.Swift.settings(),
				Linker: meta.LinkerSettings{
					LanguageSettings: c.Settings.Linker.settings(),
					Frameworks:       c.Settings.Linker.Frameworks,
					Libraries:        c.Settings.Linker.Libraries,
				},
			},
		},
		Directories: meta.PackageDirectories{
			WorkingDir:  c.WorkingDir,
			ScratchDir:  c.ScratchDir,
			CacheDir:    c.CacheDir,
			ConfigDir:   c.ConfigDir,
			SecurityDir: c.SecurityDir,
		},
		Targets:     targets,
		Mode:        mode,
		SourcesDir:  c.SourcesDir,
		BuildDir:    c.BuildDir,
		ProductsDir: c.ProductsDir,
		TraceDir:    c.TraceDir,
		NetrcFile:   c.NetrcFile,
		Jobs:        c.Jobs,
		Export: build.ExportConfig{
			Enabled: c.Export.Enabled,
			Name:    c.Export.Name,
			Include: c.Export.Include,
		},
	}, nil
}
