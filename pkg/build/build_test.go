// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensbom-generator/spmkit/dependency"
	"github.com/opensbom-generator/spmkit/graph"
	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/internal/testutil"
	"github.com/opensbom-generator/spmkit/internal/trace"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/pkg/models"
	"github.com/opensbom-generator/spmkit/swift"
)

const frameworkPlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>A</string>
</dict>
</plist>
`

type fixture struct {
	root      string
	publicDir string
	exec      *testutil.FakeExecutor
	cfg       Config
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// newFixture scripts a toolchain that succeeds. Rules registered by
// overrides take precedence over the defaults.
func newFixture(t *testing.T, overrides ...func(*testutil.FakeExecutor)) *fixture {
	t.Helper()
	f := &fixture{root: t.TempDir()}

	checkout := filepath.Join(f.root, "checkouts", "googleutilities")
	f.publicDir = filepath.Join(checkout, "Sources", graph.PublicFolder)
	require.NoError(t, os.MkdirAll(f.publicDir, 0o755))

	graphJSON := fmt.Sprintf(`{
  "identity": "shared", "name": "Shared", "url": "", "version": "unspecified", "path": "",
  "dependencies": [{
    "identity": "firebase-ios-sdk", "name": "Firebase",
    "url": "https://github.com/firebase/firebase-ios-sdk.git", "version": "11.0.0", "path": "",
    "dependencies": [{
      "identity": "googleutilities", "name": "GoogleUtilities",
      "url": "https://github.com/google/GoogleUtilities.git", "version": "8.0.2", "path": %q,
      "dependencies": []
    }]
  }]
}`, checkout)

	f.exec = testutil.NewFakeExecutor()
	for _, override := range overrides {
		override(f.exec)
	}
	f.exec.
		On("swift --version", testutil.Reply("Apple Swift version 6.0.2 (swiftlang-6.0.2.1.2 clang-1600.0.26.4)")).
		On("xcodebuild -version", testutil.Reply("Xcode 16.1\nBuild version 16B40\n")).
		On("--show-sdk-path", func(c testutil.Call) (*helper.Result, error) {
			return &helper.Result{Stdout: "/sdks/" + c.Arg("--sdk") + ".sdk\n"}, nil
		}).
		On("show-dependencies", func(c testutil.Call) (*helper.Result, error) {
			lock := filepath.Join(c.Arg("--package-path"), meta.ResolvedFile)
			if err := writeFile(lock, `{"pins":[{"identity":"firebase-ios-sdk","version":"11.0.0"}]}`); err != nil {
				return nil, err
			}
			marker := filepath.Join(c.Arg("--scratch-path"), "checkouts", "marker")
			if err := writeFile(marker, "original"); err != nil {
				return nil, err
			}
			return &helper.Result{Stdout: graphJSON}, nil
		}).
		On("package resolve", func(c testutil.Call) (*helper.Result, error) {
			lock := filepath.Join(c.Arg("--package-path"), meta.ResolvedFile)
			if !helper.Exists(lock) {
				if err := writeFile(lock, `{"pins":[]}`); err != nil {
					return nil, err
				}
			}
			return &helper.Result{}, nil
		}).
		On("swift build", f.build)

	decls, err := dependency.NewBuilder().
		AddRemotePackage("https://github.com/firebase/firebase-ios-sdk.git", "firebase",
			dependency.RevisionVersion, "11.0.0", dependency.ProductSelector{
				{Name: "FirebaseCore", ExportToKotlin: true},
				{Name: "FirebaseAnalytics", ExportToKotlin: true, IncludeInExportedPackage: true},
			}).
		Build()
	require.NoError(t, err)

	f.cfg = Config{
		Declarations: decls,
		Manifest: swift.ManifestOptions{
			Name:      "Shared",
			Platforms: meta.Platforms{IOS: "16.0"},
		},
		Directories: meta.PackageDirectories{
			WorkingDir: filepath.Join(f.root, "work"),
			ScratchDir: filepath.Join(f.root, "scratch"),
		},
		Targets: []meta.CompileTarget{meta.IOSArm64, meta.IOSSimulatorArm64},
		Mode:    meta.Debug,
	}
	return f
}

// build imitates the compiler: the library lands in the build directory
// of the target, named after the package
func (f *fixture) build(c testutil.Call) (*helper.Result, error) {
	target := meta.CompileTarget(filepath.Base(c.Arg("--package-path")))
	mode := meta.BuildMode(c.Arg("-c"))
	out := filepath.Join(c.Arg("--scratch-path"), target.BuildDir(mode))
	if err := writeFile(filepath.Join(out, "libShared.a"), "archive for "+string(target)); err != nil {
		return nil, err
	}
	return &helper.Result{}, nil
}

func (f *fixture) run(t *testing.T) *Report {
	t.Helper()
	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestRunBuildsEveryTarget(t *testing.T) {
	f := newFixture(t)
	report := f.run(t)

	require.Len(t, report.Results, 2)
	assert.Empty(t, report.Failed())
	assert.Equal(t, "16.1", report.XcodeVersion)
	assert.Equal(t, []string{f.publicDir}, report.PublicFolders)

	device, simulator := report.Results[0], report.Results[1]
	assert.Equal(t, meta.IOSArm64, device.Target)
	assert.Equal(t, models.StateArtifactStaged, device.State)
	assert.Equal(t, models.StateArtifactStaged, simulator.State)
	assert.False(t, device.ResolveSkipped)

	require.Len(t, device.Artifacts, 2)
	require.Len(t, simulator.Artifacts, 2)
	assert.NotEqual(t, device.Artifacts, simulator.Artifacts)

	work := f.cfg.Directories.WorkingDir
	assert.Equal(t, filepath.Join(work, "build", "arm64-apple-ios", "debug", "libShared.a"), device.Artifacts[0])
	assert.Equal(t, filepath.Join(work, "artifacts", "ios_simulator_arm64", "libShared.a"), simulator.Artifacts[1])
	for _, res := range report.Results {
		for _, a := range res.Artifacts {
			data, err := os.ReadFile(a)
			require.NoError(t, err)
			assert.Equal(t, "archive for "+string(res.Target), string(data))
		}
	}

	build := f.exec.Calls()
	var triples []string
	for _, c := range build {
		if strings.Contains(c.Line(), "swift build") {
			triples = append(triples, c.Arg("--triple"))
		}
	}
	assert.ElementsMatch(t, []string{"arm64-apple-ios16.0", "arm64-apple-ios16.0-simulator"}, triples)

	// the primary lock file pins every target
	primaryLock, err := os.ReadFile(filepath.Join(f.cfg.Directories.PrimaryDir(), meta.ResolvedFile))
	require.NoError(t, err)
	targetLock, err := os.ReadFile(filepath.Join(f.cfg.Directories.TargetWorkingDir(meta.IOSArm64), meta.ResolvedFile))
	require.NoError(t, err)
	assert.Equal(t, primaryLock, targetLock)

	// placeholder source for the empty target
	assert.FileExists(t, filepath.Join(meta.SourcesDir(f.cfg.Directories.TargetWorkingDir(meta.IOSArm64), "Shared"), swift.PlaceholderFile))

	// single module: no xcconfig needed
	assert.Empty(t, report.BuildSettings)
	require.Len(t, report.Modules, 1)
	assert.False(t, report.Modules[0].IsFramework)

	def, err := os.ReadFile(device.Modules[0].DefinitionFile)
	require.NoError(t, err)
	assert.Contains(t, string(def), fmt.Sprintf(`-I"%s"`, f.publicDir))
	assert.Contains(t, string(def), "modules = FirebaseCore FirebaseAnalytics")
}

func TestSecondRunSkipsResolve(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	require.Equal(t, 2, f.exec.Count("package resolve"))

	report := f.run(t)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 2, f.exec.Count("package resolve"), "resolve is skipped")
	assert.Equal(t, 1, f.exec.Count("show-dependencies"), "graph analysis is cached")
	assert.Equal(t, 4, f.exec.Count("swift build"))
	assert.Equal(t, []string{f.publicDir}, report.PublicFolders)

	for _, res := range report.Results {
		assert.True(t, res.ResolveSkipped)

		tr, err := trace.ReadReport(res.TraceFile)
		require.NoError(t, err)
		span, found := tr.Find(StageResolve)
		require.True(t, found)
		assert.Equal(t, trace.StatusSkipped, span.Status)

		span, found = tr.Find(StageCompile)
		require.True(t, found)
		assert.Equal(t, trace.StatusOK, span.Status)
	}

	prepare, err := trace.ReadReport(report.TraceFile)
	require.NoError(t, err)
	span, found := prepare.Find("graph")
	require.True(t, found)
	assert.Equal(t, trace.StatusSkipped, span.Status)
}

func TestChangedDependenciesResolveAgain(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	decls, err := dependency.NewBuilder().
		AddRemotePackage("https://github.com/firebase/firebase-ios-sdk.git", "firebase",
			dependency.RevisionVersion, "11.1.0", dependency.ProductSelector{{Name: "FirebaseCore"}}).
		Build()
	require.NoError(t, err)
	f.cfg.Declarations = decls

	report := f.run(t)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 4, f.exec.Count("package resolve"))
	assert.Equal(t, 2, f.exec.Count("show-dependencies"))
}

func TestScratchIsSeededOnce(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	marker := filepath.Join(f.cfg.Directories.TargetScratchDir(meta.IOSArm64), "checkouts", "marker")
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	// incremental state of the target survives later runs
	require.NoError(t, os.WriteFile(marker, []byte("incremental"), 0o644))
	f.run(t)
	data, err = os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "incremental", string(data))
}

func TestFailedTargetDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("arm64-apple-ios16.0-simulator", testutil.Fail("error: no such module 'UIKit'"))
	})

	report := f.run(t)
	require.Len(t, report.Results, 2)

	device, simulator := report.Results[0], report.Results[1]
	assert.Equal(t, models.StateArtifactStaged, device.State)
	assert.Equal(t, models.StateFailed, simulator.State)
	assert.Equal(t, models.StateDependenciesResolved, simulator.FailedIn)
	assert.Empty(t, simulator.Artifacts)
	assert.Equal(t, []*models.TargetResult{simulator}, report.Failed())

	var toolErr *swift.ToolError
	require.ErrorAs(t, simulator.Err, &toolErr)
	assert.Contains(t, toolErr.Output, "no such module 'UIKit'")
	assert.Contains(t, simulator.Error, StageCompile)

	tr, err := trace.ReadReport(simulator.TraceFile)
	require.NoError(t, err)
	span, found := tr.Find(StageCompile)
	require.True(t, found)
	assert.Equal(t, trace.StatusFailed, span.Status)

	// the staged target still gets its modules exported
	require.Len(t, report.Modules, 1)
}

func TestGraphFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("show-dependencies", testutil.Fail("error: network unreachable"))
	})

	report := f.run(t)
	assert.Empty(t, report.Failed())
	assert.Empty(t, report.PublicFolders)

	prepare, err := trace.ReadReport(report.TraceFile)
	require.NoError(t, err)
	span, found := prepare.Find("graph")
	require.True(t, found)
	assert.Equal(t, trace.StatusFailed, span.Status)
}

func TestGraphWithoutBuilding(t *testing.T) {
	f := newFixture(t)
	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)

	res, err := o.Graph(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, []string{f.publicDir}, res.PublicFolders)
	assert.True(t, helper.Exists(filepath.Join(f.cfg.Directories.PrimaryDir(), meta.ManifestFile)))
	assert.Zero(t, f.exec.Count("swift build"))

	res, err = o.Graph(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, f.exec.Count("show-dependencies"))
}

func TestToolchainFailureStopsRun(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("xcodebuild -version", testutil.Fail("xcode-select: error: tool 'xcodebuild' requires Xcode"))
	})

	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't find Xcode version")
	assert.Zero(t, f.exec.Count("swift build"))
}

func TestMissingSDKFailsTarget(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("--sdk iphonesimulator --show-sdk-path", testutil.Fail("xcrun: error: SDK cannot be located"))
	})

	report := f.run(t)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, meta.IOSSimulatorArm64, report.Failed()[0].Target)
	assert.Contains(t, report.Failed()[0].Error, "can't find SDK path")
}

func TestMissingLibraryFailsStaging(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("swift build", func(c testutil.Call) (*helper.Result, error) {
			target := meta.CompileTarget(filepath.Base(c.Arg("--package-path")))
			dir := filepath.Join(c.Arg("--scratch-path"), target.BuildDir(meta.BuildMode(c.Arg("-c"))))
			return &helper.Result{}, os.MkdirAll(dir, 0o755)
		})
	})

	report := f.run(t)
	require.Len(t, report.Failed(), 2)
	for _, res := range report.Failed() {
		assert.ErrorIs(t, res.Err, errNoArtifact)
		assert.Equal(t, models.StateCompiled, res.FailedIn)
	}
}

func TestFrameworksAndExportPackage(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("swift build", func(c testutil.Call) (*helper.Result, error) {
			target := meta.CompileTarget(filepath.Base(c.Arg("--package-path")))
			out := filepath.Join(c.Arg("--scratch-path"), target.BuildDir(meta.BuildMode(c.Arg("-c"))))
			for path, content := range map[string]string{
				filepath.Join(out, "libShared.a"):                        "archive",
				filepath.Join(out, "A.framework", "Info.plist"):          frameworkPlist,
				filepath.Join(out, "A.framework", "A"):                   "binary",
				filepath.Join(out, "A.framework", "res.bundle", "x.png"): "png",
				filepath.Join(out, "b.bundle", "strings"):                "text",
			} {
				if err := writeFile(path, content); err != nil {
					return nil, err
				}
			}
			return &helper.Result{}, nil
		})
	})
	f.cfg.Export = ExportConfig{Enabled: true}

	report := f.run(t)
	require.Empty(t, report.Failed())

	require.Len(t, report.Modules, 2)
	assert.Equal(t, "Shared", report.Modules[0].Name)
	assert.Equal(t, "A", report.Modules[1].Name)
	assert.True(t, report.Modules[1].IsFramework)

	products := filepath.Join(f.cfg.Directories.WorkingDir, "products", "debug")
	assert.Equal(t, filepath.Join(products, "ios_arm64", "Frameworks"), report.Modules[1].BuildDirectory)
	assert.FileExists(t, filepath.Join(products, "ios_simulator_arm64", "Frameworks", "A.framework", "A"))
	assert.FileExists(t, filepath.Join(products, "iphoneos", "Frameworks", "A.framework", "A"))
	assert.Zero(t, f.exec.Count("lipo"), "no platform is shared")
	assert.FileExists(t, filepath.Join(products, "iphonesimulator", "res.bundle", "x.png"))
	assert.FileExists(t, filepath.Join(products, "iphonesimulator", "b.bundle", "strings"))

	require.Len(t, report.BuildSettings, 2)
	debug, err := os.ReadFile(report.BuildSettings[0])
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FRAMEWORK_SEARCH_PATHS = $(inherited) \"%s\"\nOTHER_LDFLAGS = $(inherited) -ObjC -framework A\n",
		filepath.Join(products, "$(PLATFORM_NAME)", "Frameworks")), string(debug))

	manifest, err := os.ReadFile(filepath.Join(report.ExportDir, meta.ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `name: "SharedExported"`)
	assert.Contains(t, string(manifest), `.product(name: "FirebaseAnalytics", package: "firebase-ios-sdk")`)
	assert.NotContains(t, string(manifest), `"FirebaseCore"`)
}

// lipo imitates the merge of architecture slices by concatenation
func lipo(c testutil.Call) (*helper.Result, error) {
	var merged []byte
	for _, in := range c.Args[2 : len(c.Args)-2] {
		data, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		merged = append(merged, data...)
	}
	return &helper.Result{}, os.WriteFile(c.Arg("-output"), merged, 0o644)
}

func TestTargetsSharingAPlatform(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("lipo -create", lipo)
		e.On("swift build", func(c testutil.Call) (*helper.Result, error) {
			target := meta.CompileTarget(filepath.Base(c.Arg("--package-path")))
			out := filepath.Join(c.Arg("--scratch-path"), target.BuildDir(meta.BuildMode(c.Arg("-c"))))
			files := map[string]string{
				filepath.Join(out, "libShared.a"):               "archive",
				filepath.Join(out, "A.framework", "Info.plist"): frameworkPlist,
				filepath.Join(out, "A.framework", "A"):          "binary for " + target.Arch() + "\n",
				filepath.Join(out, "b.bundle", "strings"):       "text",
			}
			for i := 0; i < 200; i++ {
				files[filepath.Join(out, "A.framework", "Headers", fmt.Sprintf("h%03d.h", i))] = "// header"
			}
			for path, content := range files {
				if err := writeFile(path, content); err != nil {
					return nil, err
				}
			}
			return &helper.Result{}, nil
		})
	})
	f.cfg.Targets = []meta.CompileTarget{meta.IOSSimulatorArm64, meta.IOSX64}
	products := filepath.Join(f.cfg.Directories.WorkingDir, "products", "debug")

	for round := 1; round <= 5; round++ {
		report := f.run(t)
		require.Empty(t, report.Failed(), "round %d", round)

		for _, res := range report.Results {
			dir := filepath.Join(products, string(res.Target), "Frameworks")
			require.Len(t, res.Modules, 2)
			assert.Equal(t, dir, res.Modules[1].BuildDirectory)

			slice, err := os.ReadFile(filepath.Join(dir, "A.framework", "A"))
			require.NoError(t, err)
			assert.Equal(t, "binary for "+res.Target.Arch()+"\n", string(slice))
		}

		merged, err := os.ReadFile(filepath.Join(products, "iphonesimulator", "Frameworks", "A.framework", "A"))
		require.NoError(t, err)
		assert.Equal(t, "binary for arm64\nbinary for x86_64\n", string(merged), "round %d", round)
		assert.FileExists(t, filepath.Join(products, "iphonesimulator", "Frameworks", "A.framework", "Headers", "h199.h"))
		assert.FileExists(t, filepath.Join(products, "iphonesimulator", "b.bundle", "strings"))
		assert.Equal(t, round, f.exec.Count("lipo -create"))
	}
}

func TestMergeFailureIsReported(t *testing.T) {
	f := newFixture(t, func(e *testutil.FakeExecutor) {
		e.On("lipo -create", testutil.Fail("fatal error: lipo: have the same architectures"))
		e.On("swift build", func(c testutil.Call) (*helper.Result, error) {
			target := meta.CompileTarget(filepath.Base(c.Arg("--package-path")))
			out := filepath.Join(c.Arg("--scratch-path"), target.BuildDir(meta.BuildMode(c.Arg("-c"))))
			for path, content := range map[string]string{
				filepath.Join(out, "libShared.a"):               "archive",
				filepath.Join(out, "A.framework", "Info.plist"): frameworkPlist,
				filepath.Join(out, "A.framework", "A"):          "binary",
			} {
				if err := writeFile(path, content); err != nil {
					return nil, err
				}
			}
			return &helper.Result{}, nil
		})
	})
	f.cfg.Targets = []meta.CompileTarget{meta.IOSSimulatorArm64, meta.IOSX64}

	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merging iphonesimulator products")
	require.NotNil(t, report)
	assert.Empty(t, report.Failed())

	prepare, err := trace.ReadReport(report.TraceFile)
	require.NoError(t, err)
	span, found := prepare.Find("products")
	require.True(t, found)
	assert.Equal(t, trace.StatusFailed, span.Status)
}

func TestCanceledRunFailsTargets(t *testing.T) {
	f := newFixture(t)
	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := o.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Failed(), 2)
	for _, res := range report.Failed() {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Zero(t, f.exec.Count("swift build"))
}

func TestNewValidatesConfig(t *testing.T) {
	valid := newFixture(t).cfg
	for name, tc := range map[string]struct {
		mutate func(*Config)
		err    error
	}{
		"no name":        {func(c *Config) { c.Manifest.Name = "" }, errNoName},
		"no targets":     {func(c *Config) { c.Targets = nil }, errNoTargets},
		"unknown target": {func(c *Config) { c.Targets = []meta.CompileTarget{"ios_risc"} }, errUnknownTarget},
		"no working dir": {func(c *Config) { c.Directories.WorkingDir = "" }, errNoWorkingDir},
		"no scratch dir": {func(c *Config) { c.Directories.ScratchDir = "" }, errNoScratchDir},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			_, err := New(cfg, swift.New(testutil.NewFakeExecutor()))
			require.ErrorIs(t, err, tc.err)
		})
	}

	cfg := valid
	cfg.Mode = "profile"
	_, err := New(cfg, swift.New(testutil.NewFakeExecutor()))
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	f := newFixture(t)
	o, err := New(f.cfg, swift.New(f.exec))
	require.NoError(t, err)

	cfg := o.Config()
	work := f.cfg.Directories.WorkingDir
	assert.Equal(t, filepath.Join(work, "build"), cfg.BuildDir)
	assert.Equal(t, filepath.Join(work, "products"), cfg.ProductsDir)
	assert.Equal(t, filepath.Join(work, "traces"), cfg.TraceDir)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, "SharedExported", cfg.Export.Name)
	assert.Equal(t, "libShared.a", cfg.LibraryName())
}
