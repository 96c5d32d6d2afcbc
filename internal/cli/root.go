// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line interface of spmkit.
package cli

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opensbom-generator/spmkit/internal/config"
	"github.com/opensbom-generator/spmkit/internal/helper"
	"github.com/opensbom-generator/spmkit/plugin"
	"github.com/opensbom-generator/spmkit/swift"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var cfgFile string

// newPackageManager creates the toolchain driver used by the commands
var newPackageManager = func() plugin.PackageManager {
	return swift.New(helper.NewCommandExecutor())
}

type configKey struct{}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spmkit",
		Short: "Build Swift packages into static libraries for Kotlin Multiplatform",
		Long: `spmkit synthesizes a Swift package from declared dependencies, builds it
for every compile target and stages the libraries, frameworks and bundles
a Kotlin Multiplatform project links against.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cfg.Verbose {
				log.SetLevel(log.DebugLevel)
			}
			if cfg.File != "" {
				log.Debugf("Using config file: %s", cfg.File)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.FileName+")")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (table|json)")
	flags.String("mode", "", "Build mode (debug|release)")
	flags.StringSlice("target", nil, "Compile targets to build, e.g. ios_arm64")
	flags.Int("jobs", 0, "Number of targets built concurrently")
	flags.Bool("export", false, "Generate the export package")
	flags.String("working-dir", "", "Directory holding the generated packages")
	flags.String("scratch-dir", "", "Scratch directory of the primary package")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand(Version, GitCommit))
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newManifestCommand())
	rootCmd.AddCommand(newGraphCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// getConfig retrieves the config loaded by the root command
func getConfig(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return config.Load(cfgFile, nil)
}
