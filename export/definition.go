// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/meta"
)

// DefinitionExt is the extension of cinterop definition files
const DefinitionExt = ".def"

// kotlinSurface gathers what the exportable dependencies contribute to
// the definition of the static umbrella module
type kotlinSurface struct {
	modules      []string
	linkerOpts   []string
	compilerOpts []string
}

func (k *kotlinSurface) binary(d dependency.Binary) {
	k.modules = append(k.modules, d.BinaryName)
	k.linkerOpts = append(k.linkerOpts, d.LinkerOpts...)
	k.compilerOpts = append(k.compilerOpts, d.CompilerOpts...)
}

func (k *kotlinSurface) products(products dependency.ProductSelector) {
	for _, p := range products {
		k.modules = append(k.modules, p.ModuleName())
		k.linkerOpts = append(k.linkerOpts, p.LinkerOpts...)
		k.compilerOpts = append(k.compilerOpts, p.CompilerOpts...)
	}
}

func (k *kotlinSurface) VisitLocalBinary(d *dependency.LocalBinary) error {
	k.binary(d.Binary)
	return nil
}

func (k *kotlinSurface) VisitRemoteBinary(d *dependency.RemoteBinary) error {
	k.binary(d.Binary)
	return nil
}

func (k *kotlinSurface) VisitLocalPackage(d *dependency.LocalPackage) error {
	k.products(d.Products)
	return nil
}

func (k *kotlinSurface) VisitRemotePackage(d *dependency.RemotePackage) error {
	k.products(d.Products)
	return nil
}

// Definition renders the cinterop definition of module. exportable must
// already be filtered for Kotlin; it only contributes to the static module.
func Definition(module meta.ModuleConfig, exportable []dependency.Dependency, publicFolders []string) string {
	var lines []string
	add := func(key string, values ...string) {
		if len(values) > 0 {
			lines = append(lines, key+" = "+strings.Join(values, " "))
		}
	}

	add("language", "Objective-C")
	if module.IsFramework {
		add("modules", module.Name)
		add("package", module.Name)
		add("compilerOpts", "-fmodules", "-F"+quote(module.BuildDirectory))
		add("linkerOpts", "-F"+quote(module.BuildDirectory), "-framework", module.Name)
		return strings.Join(lines, "\n") + "\n"
	}

	k := &kotlinSurface{}
	for _, d := range exportable {
		_ = d.Accept(k)
	}
	compilerOpts := []string{"-fmodules"}
	for _, f := range publicFolders {
		compilerOpts = append(compilerOpts, "-I"+quote(f))
	}
	add("modules", k.modules...)
	add("package", module.Name)
	add("staticLibraries", "lib"+module.Name+".a")
	add("libraryPaths", quote(module.BuildDirectory))
	add("compilerOpts", append(compilerOpts, k.compilerOpts...)...)
	add("linkerOpts", append([]string{"-L" + quote(module.BuildDirectory)}, k.linkerOpts...)...)
	return strings.Join(lines, "\n") + "\n"
}

func quote(path string) string {
	return `"` + path + `"`
}

// WriteDefinitions writes one definition file per module into dir. The
// returned configs carry the path of their definition file.
func WriteDefinitions(dir string, modules []meta.ModuleConfig, exportable []dependency.Dependency, publicFolders []string) ([]meta.ModuleConfig, error) {
	out := make([]meta.ModuleConfig, 0, len(modules))
	for _, m := range modules {
		path := filepath.Join(dir, m.Name+DefinitionExt)
		if _, err := helper.WriteFileIfChanged(path, []byte(Definition(m, exportable, publicFolders))); err != nil {
			return nil, fmt.Errorf("writing definition of %s: %w", m.Name, err)
		}
		m.DefinitionFile = path
		out = append(out, m)
	}
	return out, nil
}
