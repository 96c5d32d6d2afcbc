// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensbom-generator/spmkit/pkg/build"
)

func newManifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the synthesized Package.swift",
		Long: `Print the manifest spmkit generates from the declared dependencies
without running the toolchain. With --exported the manifest of the
export package is printed instead.`,
		RunE: runManifest,
	}
	cmd.Flags().Bool("exported", false, "Print the export package manifest")
	return cmd
}

func runManifest(cmd *cobra.Command, _ []string) error {
	o, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}

	synthesize := o.Manifest
	if exported, _ := cmd.Flags().GetBool("exported"); exported {
		synthesize = o.ExportManifest
	}
	manifest, err := synthesize()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), manifest)
	return err
}

func newOrchestrator(cmd *cobra.Command) (*build.Orchestrator, error) {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	buildCfg, err := cfg.BuildConfig()
	if err != nil {
		return nil, err
	}
	return build.New(buildCfg, newPackageManager())
}
