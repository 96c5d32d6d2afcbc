// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensbom-generator/spmkit/pkg/models"
)

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the package for every compile target",
		Long: `Resolve and compile the synthesized package once per compile target,
then stage the static libraries, frameworks, bundles and definition files.

Targets build concurrently. A failed target does not stop the others; the
command exits with an error when any of them failed.`,
		Example: `  # Build the targets listed in spmkit.yaml
  spmkit build

  # Build one target in release mode and print JSON
  spmkit build --target ios_arm64 --mode release -o json`,
		RunE: runBuild,
	}
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return err
	}
	format, err := models.ParseOutputFormat(cfg.Output)
	if err != nil {
		return err
	}
	o, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}

	report, err := o.Run(cmd.Context())
	if report != nil {
		if rerr := renderReport(cmd.OutOrStdout(), report, format); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d targets failed", len(failed), len(report.Results))
	}
	return nil
}
