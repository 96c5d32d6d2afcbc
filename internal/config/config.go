// SPDX-License-Identifier: Apache-2.0

// Package config loads spmkit.yaml, environment variables and command line
// flags into a build configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/swift"
)

const (
	// FileName is the name of the config file
	FileName = "spmkit.yaml"
	// FileNameAlt is the alternate name of the config file
	FileNameAlt = "spmkit.yml"

	// EnvPrefix prefixes environment overrides; "__" separates nested keys
	EnvPrefix = "SPMKIT_"

	maxUpwardSearchLevels = 10
)

// Config mirrors spmkit.yaml
type Config struct {
	Name         string             `koanf:"name"`
	ToolsVersion string             `koanf:"tools_version"`
	Mode         string             `koanf:"mode"`
	Targets      []string           `koanf:"targets"`
	Jobs         int                `koanf:"jobs"`
	Platforms    PlatformsConfig    `koanf:"platforms"`
	Settings     SettingsConfig     `koanf:"settings"`
	Dependencies []DependencyConfig `koanf:"dependencies"`
	Export       ExportConfig       `koanf:"export"`

	WorkingDir  string `koanf:"working_dir"`
	ScratchDir  string `koanf:"scratch_dir"`
	CacheDir    string `koanf:"cache_dir"`
	ConfigDir   string `koanf:"config_dir"`
	SecurityDir string `koanf:"security_dir"`
	SourcesDir  string `koanf:"sources_dir"`
	BuildDir    string `koanf:"build_dir"`
	ProductsDir string `koanf:"products_dir"`
	TraceDir    string `koanf:"trace_dir"`
	NetrcFile   string `koanf:"netrc_file"`

	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"`

	// ProjectRoot anchors relative paths; it is not read from the file
	ProjectRoot string
	// File is the config file that was loaded, if any
	File string
}

type PlatformsConfig struct {
	IOS     string `koanf:"ios"`
	MacOS   string `koanf:"macos"`
	TvOS    string `koanf:"tvos"`
	WatchOS string `koanf:"watchos"`
}

type LanguageConfig struct {
	Defines     []string `koanf:"defines"`
	SearchPaths []string `koanf:"search_paths"`
	UnsafeFlags []string `koanf:"unsafe_flags"`
}

type LinkerConfig struct {
	LanguageConfig `koanf:",squash"`
	Frameworks     []string `koanf:"frameworks"`
	Libraries      []string `koanf:"libraries"`
}

type SettingsConfig struct {
	C      LanguageConfig `koanf:"c"`
	Cxx    LanguageConfig `koanf:"cxx"`
	Swift  LanguageConfig `koanf:"swift"`
	Linker LinkerConfig   `koanf:"linker"`
}

// DependencyConfig is one entry of the dependencies list. Kind selects
// which of the other fields apply.
type DependencyConfig struct {
	Kind     string `koanf:"kind"`
	Name     string `koanf:"name"`
	Path     string `koanf:"path"`
	URL      string `koanf:"url"`
	Checksum string `koanf:"checksum"`
	Version  string `koanf:"version"`
	Branch   string `koanf:"branch"`
	Commit   string `koanf:"commit"`

	// binaries only
	ExportToKotlin bool     `koanf:"export_to_kotlin"`
	LinkerOpts     []string `koanf:"linker_opts"`
	CompilerOpts   []string `koanf:"compiler_opts"`

	Products []ProductConfig `koanf:"products"`
}

type ProductConfig struct {
	Name                     string   `koanf:"name"`
	Alias                    string   `koanf:"alias"`
	ExportToKotlin           bool     `koanf:"export_to_kotlin"`
	LinkerOpts               []string `koanf:"linker_opts"`
	CompilerOpts             []string `koanf:"compiler_opts"`
	IncludeInExportedPackage bool     `koanf:"include_in_exported_package"`
}

type ExportConfig struct {
	Enabled bool     `koanf:"enabled"`
	Name    string   `koanf:"name"`
	Include []string `koanf:"include"`
}

// defaults are loaded before the config file
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"tools_version": swift.DefaultToolsVersion,
		"mode":          string(meta.Debug),
		"targets":       []string{string(meta.IOSArm64), string(meta.IOSSimulatorArm64)},
		"working_dir":   filepath.Join(".spmkit", "work"),
		"scratch_dir":   filepath.Join(".spmkit", "scratch"),
		"output":        "table",
		"verbose":       false,
	}
}

// flagKeys maps flag names whose config key is not the snake_case name
var flagKeys = map[string]string{
	"target": "targets",
	"export": "export.enabled",
}

// Load reads the configuration. Precedence (highest to lowest): flags,
// environment, config file, defaults. cfgFile may be empty; the config
// file is then searched upward from the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	projectRoot, cfgFile, err := locate(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// SPMKIT_EXPORT__ENABLED -> export.enabled
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.File = cfgFile
	cfg.resolvePaths()
	return &cfg, nil
}

// locate returns the project root and the config file to load
func locate(cfgFile string) (string, string, error) {
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return "", "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", "", fmt.Errorf("config file: %w", err)
		}
		return filepath.Dir(abs), abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if f := findConfigFile(dir); f != "" {
			return dir, f, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd, "", nil
}

func findConfigFile(dir string) string {
	for _, name := range []string{FileName, FileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{
		&c.WorkingDir, &c.ScratchDir, &c.CacheDir, &c.ConfigDir, &c.SecurityDir,
		&c.SourcesDir, &c.BuildDir, &c.ProductsDir, &c.TraceDir, &c.NetrcFile,
	} {
		*p = resolvePathRelativeTo(*p, c.ProjectRoot)
	}
	for i := range c.Dependencies {
		if c.Dependencies[i].Path != "" {
			c.Dependencies[i].Path = resolvePathRelativeTo(c.Dependencies[i].Path, c.ProjectRoot)
		}
	}
}
