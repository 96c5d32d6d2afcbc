// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
)

// DefaultToolsVersion is written when ManifestOptions.ToolsVersion is empty
const DefaultToolsVersion = "5.9"

// ManifestOptions describe the package wrapped around the dependencies
type ManifestOptions struct {
	Name         string
	ToolsVersion string
	Platforms    meta.Platforms
	Settings     meta.TargetSettings
	// Export renders the umbrella package consumed by the app project
	// instead of the static library compiled for Kotlin.
	Export bool
	// Include restricts the products (and binaries) referenced in export
	// mode. Nil references everything.
	Include []string
}

// Synthesize renders the Package.swift manifest for deps. Output depends
// only on its inputs and keeps declaration order.
func Synthesize(deps []dependency.Dependency, opts ManifestOptions) (string, error) {
	if opts.Name == "" {
		return "", errEmptyPackageName
	}
	toolsVersion := opts.ToolsVersion
	if toolsVersion == "" {
		toolsVersion = DefaultToolsVersion
	}

	w := &manifestWriter{include: includeSet(opts)}
	for _, d := range deps {
		if err := d.Accept(w); err != nil {
			return "", fmt.Errorf("rendering %s: %w", d.Name(), err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// swift-tools-version: %s\n", toolsVersion)
	b.WriteString("import PackageDescription\n\n")
	b.WriteString("let package = Package(\n")
	fmt.Fprintf(&b, "    name: %s,\n", swiftString(opts.Name))

	if platforms := renderPlatforms(opts.Platforms); len(platforms) > 0 {
		b.WriteString("    platforms: [\n")
		writeItems(&b, platforms, 8)
		b.WriteString("    ],\n")
	}

	b.WriteString("    products: [\n")
	b.WriteString("        .library(\n")
	fmt.Fprintf(&b, "            name: %s,\n", swiftString(opts.Name))
	if !opts.Export {
		b.WriteString("            type: .static,\n")
	}
	fmt.Fprintf(&b, "            targets: [%s]\n", swiftString(opts.Name))
	b.WriteString("        ),\n")
	b.WriteString("    ],\n")

	b.WriteString("    dependencies: [\n")
	writeItems(&b, w.packages, 8)
	b.WriteString("    ],\n")

	b.WriteString("    targets: [\n")
	b.WriteString("        .target(\n")
	args := []string{"name: " + swiftString(opts.Name)}
	args = append(args, "dependencies: "+renderList(w.targetDeps, 12))
	if !opts.Export {
		args = append(args, renderSettings(opts.Settings)...)
	}
	for i, arg := range args {
		b.WriteString("            " + arg)
		if i < len(args)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("        ),\n")
	for _, bt := range w.binaryTargets {
		b.WriteString(bt)
	}
	b.WriteString("    ]\n")
	b.WriteString(")\n")

	return b.String(), nil
}

// WriteManifest stores the manifest in dir. The file is left untouched
// when its content is unchanged; it reports whether it was written.
func WriteManifest(dir, manifest string) (bool, error) {
	return helper.WriteFileIfChanged(filepath.Join(dir, ManifestFile), []byte(manifest))
}

func includeSet(opts ManifestOptions) map[string]struct{} {
	if !opts.Export || opts.Include == nil {
		return nil
	}
	set := make(map[string]struct{}, len(opts.Include))
	for _, name := range opts.Include {
		set[name] = struct{}{}
	}
	return set
}

type manifestWriter struct {
	include       map[string]struct{}
	packages      []string
	targetDeps    []string
	binaryTargets []string
}

func (w *manifestWriter) included(name string) bool {
	if w.include == nil {
		return true
	}
	_, ok := w.include[name]
	return ok
}

func (w *manifestWriter) products(pkg string, products dependency.ProductSelector) bool {
	added := false
	for _, p := range products {
		if !w.included(p.Name) {
			continue
		}
		w.targetDeps = append(w.targetDeps,
			fmt.Sprintf(".product(name: %s, package: %s)", swiftString(p.Name), swiftString(pkg)))
		added = true
	}
	return added
}

func (w *manifestWriter) binary(name string, location ...string) {
	if !w.included(name) {
		return
	}
	w.targetDeps = append(w.targetDeps, swiftString(name))

	var b strings.Builder
	b.WriteString("        .binaryTarget(\n")
	fmt.Fprintf(&b, "            name: %s,\n", swiftString(name))
	for i := 0; i < len(location); i += 2 {
		fmt.Fprintf(&b, "            %s: %s", location[i], swiftString(location[i+1]))
		if i+2 < len(location) {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("        ),\n")
	w.binaryTargets = append(w.binaryTargets, b.String())
}

func (w *manifestWriter) VisitLocalBinary(d *dependency.LocalBinary) error {
	w.binary(d.Name(), "path", d.Path)
	return nil
}

func (w *manifestWriter) VisitRemoteBinary(d *dependency.RemoteBinary) error {
	w.binary(d.Name(), "url", d.URL, "checksum", d.Checksum)
	return nil
}

func (w *manifestWriter) VisitLocalPackage(d *dependency.LocalPackage) error {
	if w.products(identity("", d.Path, d.Name()), d.Products) {
		w.packages = append(w.packages, fmt.Sprintf(".package(path: %s)", swiftString(d.Path)))
	}
	return nil
}

func (w *manifestWriter) VisitRemotePackage(d *dependency.RemotePackage) error {
	var rule string
	switch d.Kind {
	case dependency.RevisionVersion:
		rule = "exact"
	case dependency.RevisionBranch:
		rule = "branch"
	case dependency.RevisionCommit:
		rule = "revision"
	default:
		return fmt.Errorf("unsupported revision kind %s", d.Kind)
	}
	if w.products(identity(d.URL, "", d.Name()), d.Products) {
		w.packages = append(w.packages,
			fmt.Sprintf(".package(url: %s, %s: %s)", swiftString(d.URL), rule, swiftString(d.Revision)))
	}
	return nil
}

func renderPlatforms(p meta.Platforms) []string {
	var out []string
	for _, pv := range []struct{ name, version string }{
		{"iOS", p.IOS},
		{"macOS", p.MacOS},
		{"tvOS", p.TvOS},
		{"watchOS", p.WatchOS},
	} {
		if pv.version != "" {
			out = append(out, fmt.Sprintf(".%s(%s)", pv.name, swiftString(pv.version)))
		}
	}
	return out
}

func renderSettings(s meta.TargetSettings) []string {
	var args []string
	add := func(label string, items []string) {
		// linker defines render nothing
		if len(items) > 0 {
			args = append(args, label+": "+renderList(items, 12))
		}
	}
	if !s.C.IsEmpty() {
		add("cSettings", clangSettings(s.C))
	}
	if !s.Cxx.IsEmpty() {
		add("cxxSettings", clangSettings(s.Cxx))
	}
	if !s.Swift.IsEmpty() {
		add("swiftSettings", swiftSettings(s.Swift))
	}
	if !s.Linker.IsEmpty() {
		add("linkerSettings", linkerSettings(s.Linker))
	}
	return args
}

func define(d string, withValue bool) string {
	name, value, ok := strings.Cut(d, "=")
	if ok && withValue {
		return fmt.Sprintf(".define(%s, to: %s)", swiftString(name), swiftString(value))
	}
	return fmt.Sprintf(".define(%s)", swiftString(name))
}

func unsafeFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	return []string{fmt.Sprintf(".unsafeFlags(%s)", swiftStrings(flags))}
}

func clangSettings(s meta.LanguageSettings) []string {
	var out []string
	for _, d := range s.Defines {
		out = append(out, define(d, true))
	}
	for _, p := range s.SearchPaths {
		out = append(out, fmt.Sprintf(".headerSearchPath(%s)", swiftString(p)))
	}
	return append(out, unsafeFlags(s.UnsafeFlags)...)
}

func swiftSettings(s meta.LanguageSettings) []string {
	var out []string
	for _, d := range s.Defines {
		out = append(out, define(d, false))
	}
	var flags []string
	for _, p := range s.SearchPaths {
		flags = append(flags, "-I", p)
	}
	return append(out, unsafeFlags(append(flags, s.UnsafeFlags...))...)
}

func linkerSettings(s meta.LinkerSettings) []string {
	var out []string
	for _, f := range s.Frameworks {
		out = append(out, fmt.Sprintf(".linkedFramework(%s)", swiftString(f)))
	}
	for _, l := range s.Libraries {
		out = append(out, fmt.Sprintf(".linkedLibrary(%s)", swiftString(l)))
	}
	// the linker has no defines
	var flags []string
	for _, p := range s.SearchPaths {
		flags = append(flags, "-L", p)
	}
	return append(out, unsafeFlags(append(flags, s.UnsafeFlags...))...)
}

// renderList renders items as a multi-line Swift array literal whose
// elements are indented by indent spaces
func renderList(items []string, indent int) string {
	if len(items) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString("[\n")
	writeItems(&b, items, indent+4)
	b.WriteString(strings.Repeat(" ", indent) + "]")
	return b.String()
}

func writeItems(b *strings.Builder, items []string, indent int) {
	pad := strings.Repeat(" ", indent)
	for _, item := range items {
		b.WriteString(pad + item + ",\n")
	}
}
