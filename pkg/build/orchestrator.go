// SPDX-License-Identifier: Apache-2.0

// Package build drives the package manager through manifest generation,
// resolution, compilation and artifact staging for every compile target.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opensbom-generator/spmkit/export"
	"github.com/opensbom-generator/spmkit/graph"
	"github.com/opensbom-generator/spmkit/internal/trace"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/pkg/models"
	"github.com/opensbom-generator/spmkit/plugin"
	"github.com/opensbom-generator/spmkit/resources"
	"github.com/opensbom-generator/spmkit/swift"
)

// Orchestrator runs one pipeline per compile target
type Orchestrator struct {
	cfg      Config
	pm       plugin.PackageManager
	analyzer *graph.Analyzer
}

// Report is the outcome of an orchestration
type Report struct {
	Results       []*models.TargetResult
	XcodeVersion  string
	PublicFolders []string
	// Modules are the module configs of every staged target, by name
	Modules       []meta.ModuleConfig
	BuildSettings []string
	ExportDir     string
	TraceFile     string
}

// Failed returns the results of targets that did not stage an artifact
func (r *Report) Failed() []*models.TargetResult {
	var failed []*models.TargetResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			failed = append(failed, res)
		}
	}
	return failed
}

// New validates cfg and creates an orchestrator driving pm
func New(cfg Config, pm plugin.PackageManager) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		pm:       pm,
		analyzer: graph.NewAnalyzer(pm),
	}, nil
}

// Config returns the effective configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Manifest synthesizes the primary manifest shared by every target
func (o *Orchestrator) Manifest() (string, error) {
	return swift.Synthesize(o.cfg.Declarations.All(), o.cfg.Manifest)
}

// Run prepares the primary package, builds every target and generates the
// export package. Target failures are reported in the results; the
// returned error is reserved for failures that affect every target.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	tracer := trace.New("prepare", filepath.Join(o.cfg.TraceDir, "prepare.yaml"))
	report := &Report{TraceFile: tracer.Path()}
	defer func() {
		if err := tracer.Write(); err != nil {
			log.Warnf("unable to write trace report: %v", err)
		}
	}()

	manifest, err := o.prepare(ctx, tracer, report)
	if err != nil {
		return nil, err
	}

	report.Results = make([]*models.TargetResult, len(o.cfg.Targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Jobs)
	for i, target := range o.cfg.Targets {
		i := i
		p := newPipeline(target, &o.cfg, o.pm, manifest, report.PublicFolders)
		g.Go(func() error {
			// a failed target must not cancel its siblings
			report.Results[i] = p.Run(gctx)
			return nil
		})
	}
	_ = g.Wait()

	span := tracer.Start("products")
	if err := o.mergeProducts(report.Results); err != nil {
		span.Fail(err)
		return report, err
	}
	span.End()

	report.Modules = aggregateModules(report.Results)
	span = tracer.Start("export")
	if err := o.export(report); err != nil {
		span.Fail(err)
		return report, err
	}
	span.End()

	if failed := report.Failed(); len(failed) > 0 {
		log.Warnf("%d of %d targets failed", len(failed), len(report.Results))
	}
	return report, nil
}

func (o *Orchestrator) prepare(ctx context.Context, tracer *trace.Tracer, report *Report) (string, error) {
	started := time.Now()
	span := tracer.Start("toolchain")
	version, err := o.pm.GetVersion()
	if err != nil {
		span.Fail(err)
		return "", fmt.Errorf("reading toolchain version: %w", err)
	}
	log.Infof("%s %s", o.pm.GetMetadata().Name, version)
	if err := o.pm.CheckToolsVersion(toolsVersion(o.cfg.Manifest)); err != nil {
		span.Fail(err)
		return "", err
	}
	if report.XcodeVersion, err = o.pm.XcodeVersion(); err != nil {
		span.Fail(err)
		return "", err
	}
	span.End()

	span = tracer.Start(StageManifest)
	manifest, err := o.writePrimary()
	if err != nil {
		span.Fail(err)
		return "", err
	}
	span.End()

	span = tracer.Start("graph")
	res, err := o.analyze(ctx)
	switch {
	case err != nil:
		log.Warnf("dependency graph analysis failed, building without public headers: %v", err)
		span.Fail(err)
	case res.Cached:
		report.PublicFolders = res.PublicFolders
		span.Skip("dependency graph unchanged")
	default:
		report.PublicFolders = res.PublicFolders
		span.End()
	}

	log.Debugf("prepared %s in %s", o.cfg.Directories.PrimaryDir(), time.Since(started))
	return manifest, nil
}

// Graph writes the primary package and analyzes its dependency graph
// without building any target
func (o *Orchestrator) Graph(ctx context.Context) (*graph.Result, error) {
	if _, err := o.writePrimary(); err != nil {
		return nil, err
	}
	return o.analyze(ctx)
}

// writePrimary stores the primary manifest and its placeholder sources
func (o *Orchestrator) writePrimary() (string, error) {
	manifest, err := o.Manifest()
	if err != nil {
		return "", err
	}
	primary := o.cfg.Directories.PrimaryDir()
	if _, err := swift.WriteManifest(primary, manifest); err != nil {
		return "", err
	}
	if err := swift.EnsureSources(meta.SourcesDir(primary, o.cfg.Manifest.Name), o.cfg.SourcesDir); err != nil {
		return "", err
	}
	return manifest, nil
}

func (o *Orchestrator) analyze(ctx context.Context) (*graph.Result, error) {
	return o.analyzer.Analyze(ctx, graph.Options{
		Package: plugin.NewPackageOptions(o.cfg.Directories.PrimaryDir(), o.cfg.Directories.OriginalScratchDir(),
			o.cfg.Directories, o.cfg.NetrcFile),
		Fingerprint: o.cfg.Declarations.Fingerprint(),
	})
}

func (o *Orchestrator) export(report *Report) error {
	dir := o.cfg.Directories.ExportDir()
	report.ExportDir = dir

	paths, err := export.WriteBuildSettings(dir, report.Modules, o.cfg.ProductsDir)
	if err != nil {
		return err
	}
	report.BuildSettings = paths

	if !o.cfg.Export.Enabled {
		return nil
	}
	if _, err := export.WriteExportManifest(dir, o.cfg.Declarations.All(), o.exportOptions()); err != nil {
		return err
	}
	return nil
}

// ExportManifest synthesizes the manifest of the export package
func (o *Orchestrator) ExportManifest() (string, error) {
	opts := o.exportOptions()
	opts.Export = true
	return swift.Synthesize(o.cfg.Declarations.All(), opts)
}

func (o *Orchestrator) exportOptions() swift.ManifestOptions {
	include := o.cfg.Export.Include
	if include == nil {
		include = export.IncludeList(o.cfg.Declarations)
	}
	opts := o.cfg.Manifest
	opts.Name = o.cfg.Export.Name
	opts.Include = include
	return opts
}

// mergeProducts combines the products the pipelines staged per target
// into one directory per platform, the layout Xcode searches through
// $(PLATFORM_NAME). Targets sharing a platform contribute one slice each.
func (o *Orchestrator) mergeProducts(results []*models.TargetResult) error {
	var sdks []string
	staged := map[string][]resources.Paths{}
	for _, res := range results {
		if res == nil || !res.Succeeded() {
			continue
		}
		sdk := res.Target.SDK()
		if _, ok := staged[sdk]; !ok {
			sdks = append(sdks, sdk)
		}
		staged[sdk] = append(staged[sdk], resources.StagingPaths(o.cfg.TargetProductsDir(res.Target)))
	}

	for _, sdk := range sdks {
		if _, err := resources.Merge(o.cfg.PlatformProductsDir(sdk), staged[sdk], o.pm.CreateUniversalBinary); err != nil {
			return fmt.Errorf("merging %s products: %w", sdk, err)
		}
	}
	return nil
}

func toolsVersion(opts swift.ManifestOptions) string {
	if opts.ToolsVersion == "" {
		return swift.DefaultToolsVersion
	}
	return opts.ToolsVersion
}

// aggregateModules merges the module configs of the staged targets. The
// static package module comes first, frameworks follow in order of
// appearance.
func aggregateModules(results []*models.TargetResult) []meta.ModuleConfig {
	var modules []meta.ModuleConfig
	seen := map[string]struct{}{}
	for _, res := range results {
		if res == nil || !res.Succeeded() {
			continue
		}
		for _, m := range res.Modules {
			if _, ok := seen[m.Name]; ok {
				continue
			}
			seen[m.Name] = struct{}{}
			modules = append(modules, m)
		}
	}
	return modules
}
