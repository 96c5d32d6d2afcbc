// SPDX-License-Identifier: Apache-2.0

package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/swift"
)

func declarations(t *testing.T) dependency.Declarations {
	t.Helper()
	decls, err := dependency.NewBuilder().
		AddRemotePackage("https://github.com/firebase/firebase-ios-sdk.git", "firebase",
			dependency.RevisionVersion, "11.0.0", dependency.ProductSelector{
				{Name: "FirebaseCore", ExportToKotlin: true, LinkerOpts: []string{"-ObjC"}},
				{Name: "FirebaseAnalytics", Alias: "Analytics", ExportToKotlin: true, IncludeInExportedPackage: true},
				{Name: "FirebaseInternal"},
			}).
		AddLocalBinary("/bin/Dummy.xcframework", dependency.Binary{
			BinaryName:     "Dummy",
			ExportToKotlin: true,
			CompilerOpts:   []string{"-DDUMMY"},
		}).
		AddLocalBinary("/bin/Hidden.xcframework", dependency.Binary{BinaryName: "Hidden"}).
		Build()
	require.NoError(t, err)
	return decls
}

func TestIncludeList(t *testing.T) {
	assert.Equal(t, []string{"FirebaseAnalytics", "Dummy"}, IncludeList(declarations(t)))
}

func TestWriteExportManifest(t *testing.T) {
	decls := declarations(t)
	dir := t.TempDir()

	changed, err := WriteExportManifest(dir, decls.All(), swift.ManifestOptions{
		Name:      "SharedExported",
		Platforms: meta.Platforms{IOS: "13.0"},
		Include:   IncludeList(decls),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(filepath.Join(dir, meta.ManifestFile))
	require.NoError(t, err)
	manifest := string(data)
	assert.Contains(t, manifest, `.product(name: "FirebaseAnalytics", package: "firebase-ios-sdk")`)
	assert.NotContains(t, manifest, `"FirebaseCore"`)
	assert.Contains(t, manifest, `name: "Dummy"`)
	assert.NotContains(t, manifest, "Hidden")
	assert.NotContains(t, manifest, "type: .static")
	assert.FileExists(t, filepath.Join(meta.SourcesDir(dir, "SharedExported"), swift.PlaceholderFile))

	changed, err = WriteExportManifest(dir, decls.All(), swift.ManifestOptions{
		Name:      "SharedExported",
		Platforms: meta.Platforms{IOS: "13.0"},
		Include:   IncludeList(decls),
	})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWriteExportManifestEmptyInclude(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteExportManifest(dir, declarations(t).All(), swift.ManifestOptions{Name: "Empty"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, meta.ManifestFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), ".product(")
	assert.NotContains(t, string(data), ".binaryTarget(")
}

func modules() []meta.ModuleConfig {
	return []meta.ModuleConfig{
		{Name: "Shared", BuildDirectory: "/work/artifacts/ios_arm64"},
		{Name: "A", IsFramework: true, BuildDirectory: "/products/debug/iphoneos/Frameworks"},
		{Name: "B", IsFramework: true, BuildDirectory: "/products/debug/iphoneos/Frameworks"},
	}
}

func TestBuildSettings(t *testing.T) {
	want := `FRAMEWORK_SEARCH_PATHS = $(inherited) "/products/debug/$(PLATFORM_NAME)/Frameworks"
OTHER_LDFLAGS = $(inherited) -ObjC -framework A -framework B
`
	assert.Equal(t, want, BuildSettings(modules(), FrameworkSearchPath("/products", meta.Debug)))
}

func TestWriteBuildSettings(t *testing.T) {
	dir := t.TempDir()

	paths, err := WriteBuildSettings(dir, modules(), "/products")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "debug.xcconfig"),
		filepath.Join(dir, "release.xcconfig"),
	}, paths)

	release, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(release), `"/products/release/$(PLATFORM_NAME)/Frameworks"`)

	// one module links directly; earlier fragments are removed
	paths, err = WriteBuildSettings(dir, modules()[:1], "/products")
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.NoFileExists(t, filepath.Join(dir, "debug.xcconfig"))
	assert.NoFileExists(t, filepath.Join(dir, "release.xcconfig"))
}

func TestDefinition(t *testing.T) {
	decls := declarations(t)
	want := `language = Objective-C
modules = FirebaseCore Analytics Dummy
package = Shared
staticLibraries = libShared.a
libraryPaths = "/work/artifacts/ios_arm64"
compilerOpts = -fmodules -I"/checkouts/lib/Public" -DDUMMY
linkerOpts = -L"/work/artifacts/ios_arm64" -ObjC
`
	got := Definition(modules()[0], decls.Exportable(), []string{"/checkouts/lib/Public"})
	assert.Equal(t, want, got)

	framework := Definition(modules()[1], decls.Exportable(), nil)
	assert.Equal(t, `language = Objective-C
modules = A
package = A
compilerOpts = -fmodules -F"/products/debug/iphoneos/Frameworks"
linkerOpts = -F"/products/debug/iphoneos/Frameworks" -framework A
`, framework)
}

func TestWriteDefinitions(t *testing.T) {
	dir := t.TempDir()
	out, err := WriteDefinitions(dir, modules(), declarations(t).Exportable(), nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, m := range out {
		assert.Equal(t, filepath.Join(dir, m.Name+DefinitionExt), m.DefinitionFile)
		assert.FileExists(t, m.DefinitionFile)
	}
}
