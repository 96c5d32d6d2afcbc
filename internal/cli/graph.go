// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/opensbom-generator/spmkit/pkg/models"
)

func newGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the resolved dependency graph and its public header folders",
		Long: `Write the primary package, dump its resolved dependency graph and list
the Public folders of the transitive dependencies. The result is cached
until the lock file or the declared dependencies change.`,
		RunE: runGraph,
	}
}

func runGraph(cmd *cobra.Command, _ []string) error {
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
	res, err := o.Graph(cmd.Context())
	if err != nil {
		return err
	}
	return renderGraph(cmd.OutOrStdout(), res, format)
}
