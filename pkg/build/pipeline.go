// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/opensbom-generator/spmkit/export"
	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/internal/trace"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/pkg/models"
	"github.com/opensbom-generator/spmkit/plugin"
	"github.com/opensbom-generator/spmkit/resources"
	"github.com/opensbom-generator/spmkit/swift"
)

// Stage names as they appear in trace reports
const (
	StageManifest  = "manifest"
	StageScratch   = "scratch"
	StageLockFile  = "lockfile"
	StageResolve   = "resolve"
	StageSources   = "sources"
	StageCompile   = "compile"
	StageResources = "resources"
	StageStage     = "stage"

	fingerprintFile = "resolve.fingerprint"
)

// Pipeline builds the package for one compile target. Everything it
// writes lives below directories owned by its target.
type Pipeline struct {
	target        meta.CompileTarget
	cfg           *Config
	pm            plugin.PackageManager
	manifest      string
	fingerprint   string
	publicFolders []string

	dir     string
	scratch string
	log     *log.Entry
	tracer  *trace.Tracer
	result  *models.TargetResult
}

func newPipeline(target meta.CompileTarget, cfg *Config, pm plugin.PackageManager, manifest string, publicFolders []string) *Pipeline {
	tracer := trace.New(string(target), filepath.Join(cfg.TraceDir, string(target)+".yaml"))
	return &Pipeline{
		target:        target,
		cfg:           cfg,
		pm:            pm,
		manifest:      manifest,
		fingerprint:   cfg.Declarations.Fingerprint(),
		publicFolders: publicFolders,
		dir:           cfg.Directories.TargetWorkingDir(target),
		scratch:       cfg.Directories.TargetScratchDir(target),
		log:           log.WithFields(log.Fields{"target": target, "trace": tracer.ID()}),
		tracer:        tracer,
		result:        &models.TargetResult{Target: target, State: models.StateUnresolved},
	}
}

// Run drives the target to ARTIFACT_STAGED or FAILED. It never returns
// an error; failures are recorded in the result.
func (p *Pipeline) Run(ctx context.Context) *models.TargetResult {
	started := time.Now()
	root := p.tracer.Start(string(p.target))

	defer func() {
		p.result.Duration = time.Since(started)
		p.result.TraceFile = p.tracer.Path()
		if err := p.tracer.Write(); err != nil {
			p.log.Warnf("unable to write trace report: %v", err)
		}
	}()

	steps := []struct {
		name  string
		run   func(*trace.Span) error
		state models.State
	}{
		{StageManifest, p.writeManifest, models.StateManifestGenerated},
		{StageScratch, p.seedScratch, models.StateManifestGenerated},
		{StageLockFile, p.seedLockFile, models.StateManifestGenerated},
		{StageResolve, p.resolve, models.StateDependenciesResolved},
		{StageSources, p.stageSources, models.StateDependenciesResolved},
		{StageCompile, p.compile, models.StateCompiled},
		{StageResources, p.collectResources, models.StateCompiled},
		{StageStage, p.stageArtifacts, models.StateArtifactStaged},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			p.fail(root, s.name, err)
			return p.result
		}
		span := root.Start(s.name)
		if err := s.run(span); err != nil {
			span.Fail(err)
			p.fail(root, s.name, err)
			return p.result
		}
		span.End()
		p.result.State = s.state
	}

	root.End()
	p.log.Infof("staged %s", strings.Join(p.result.Artifacts, ", "))
	return p.result
}

func (p *Pipeline) fail(root *trace.Span, stage string, err error) {
	err = fmt.Errorf("%s: %w", stage, err)
	root.Fail(err)
	p.result.FailedIn = p.result.State
	p.result.State = models.StateFailed
	p.result.Err = err
	p.result.Error = err.Error()
	p.log.Errorf("failed in %s: %v", p.result.FailedIn, err)
}

func (p *Pipeline) packageOptions() plugin.PackageOptions {
	return plugin.NewPackageOptions(p.dir, p.scratch, p.cfg.Directories, p.cfg.NetrcFile)
}

func (p *Pipeline) writeManifest(span *trace.Span) error {
	written, err := swift.WriteManifest(p.dir, p.manifest)
	if err != nil {
		return err
	}
	if !written {
		span.Skip("manifest unchanged")
	}
	return nil
}

// seedScratch copies the original scratch directory forward the first
// time a target is built. An existing scratch directory is never touched.
func (p *Pipeline) seedScratch(span *trace.Span) error {
	if helper.Exists(p.scratch) {
		span.Skip("scratch directory exists")
		return nil
	}
	original := p.cfg.Directories.OriginalScratchDir()
	if !helper.Exists(original) {
		span.Skip("no original scratch directory")
		return nil
	}
	p.log.Debugf("seeding %s from %s", p.scratch, original)
	return helper.CopyDir(original, p.scratch)
}

// seedLockFile pins the target to the versions resolved for the primary
// package
func (p *Pipeline) seedLockFile(span *trace.Span) error {
	lock := filepath.Join(p.dir, meta.ResolvedFile)
	if helper.Exists(lock) {
		span.Skip("lock file exists")
		return nil
	}
	primary := filepath.Join(p.cfg.Directories.PrimaryDir(), meta.ResolvedFile)
	if !helper.Exists(primary) {
		span.Skip("no primary lock file")
		return nil
	}
	return helper.CopyFile(primary, lock)
}

func (p *Pipeline) resolve(span *trace.Span) error {
	lock := filepath.Join(p.dir, meta.ResolvedFile)
	fpPath := filepath.Join(meta.StateDir(p.dir), fingerprintFile)

	if p.resolveIsCurrent(lock, fpPath) {
		p.result.ResolveSkipped = true
		span.Skip("dependencies unchanged")
		p.log.Debug("dependencies unchanged, not resolving")
		return nil
	}

	if err := p.pm.Resolve(plugin.ResolveOptions{PackageOptions: p.packageOptions()}); err != nil {
		return err
	}

	if helper.Exists(lock) {
		// an unchanged lock file is not rewritten by the resolver
		now := time.Now()
		if err := os.Chtimes(lock, now, now); err != nil {
			return err
		}
	}
	_, err := helper.WriteFileIfChanged(fpPath, []byte(p.fingerprint))
	return err
}

func (p *Pipeline) resolveIsCurrent(lock, fpPath string) bool {
	recorded, err := os.ReadFile(fpPath)
	if err != nil || string(recorded) != p.fingerprint {
		return false
	}
	return helper.Exists(lock) && helper.IsNewer(lock, filepath.Join(p.dir, meta.ManifestFile))
}

func (p *Pipeline) stageSources(*trace.Span) error {
	return swift.EnsureSources(meta.SourcesDir(p.dir, p.cfg.Manifest.Name), p.cfg.SourcesDir)
}

func (p *Pipeline) compile(*trace.Span) error {
	return p.pm.Build(plugin.BuildOptions{
		PackageOptions: p.packageOptions(),
		Target:         p.target,
		MinVersion:     p.cfg.Manifest.Platforms.MinVersion(p.target.SystemType()),
		Mode:           p.cfg.Mode,
	})
}

func (p *Pipeline) collectResources(span *trace.Span) error {
	res, err := resources.Collect(p.scratch, p.target.SDK(), p.target.Arch(), p.cfg.Mode)
	if err != nil {
		return err
	}
	if len(res.Frameworks) == 0 && len(res.Bundles) == 0 {
		span.Skip("no frameworks or bundles")
	} else {
		p.log.Debugf("collected frameworks %v and %d bundles", res.FrameworkNames(), len(res.Bundles))
	}
	products := p.cfg.TargetProductsDir(p.target)
	if err := os.RemoveAll(products); err != nil {
		return err
	}
	paths, err := res.CopyTo(products)
	if err != nil {
		return err
	}

	p.result.Modules = []meta.ModuleConfig{{
		Name:           p.cfg.Manifest.Name,
		BuildDirectory: p.cfg.Directories.ArtifactsDir(p.target),
	}}
	for _, fw := range res.Frameworks {
		p.result.Modules = append(p.result.Modules, meta.ModuleConfig{
			IsFramework:    true,
			Name:           fw.Name,
			BuildDirectory: paths.FrameworksDir,
		})
	}
	return nil
}

func (p *Pipeline) stageArtifacts(*trace.Span) error {
	lib := p.cfg.LibraryName()
	built := filepath.Join(p.scratch, p.target.BuildDir(p.cfg.Mode), lib)
	if !helper.Exists(built) {
		return fmt.Errorf("%w: %s", errNoArtifact, built)
	}

	artifacts := p.cfg.Directories.ArtifactsDir(p.target)
	for _, dst := range []string{
		filepath.Join(p.cfg.BuildDir, p.target.BuildDir(p.cfg.Mode), lib),
		filepath.Join(artifacts, lib),
	} {
		if err := helper.CopyFile(built, dst); err != nil {
			return fmt.Errorf("staging %s: %w", lib, err)
		}
		p.result.Artifacts = append(p.result.Artifacts, dst)
	}

	modules, err := export.WriteDefinitions(artifacts, p.result.Modules, p.cfg.Declarations.Exportable(), p.publicFolders)
	if err != nil {
		return err
	}
	p.result.Modules = modules
	return nil
}
