// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/opensbom-generator/spmkit/graph"
	"github.com/opensbom-generator/spmkit/meta"
	"github.com/opensbom-generator/spmkit/pkg/build"
	"github.com/opensbom-generator/spmkit/pkg/models"
)

type reportJSON struct {
	XcodeVersion  string                 `json:"xcodeVersion"`
	Targets       []*models.TargetResult `json:"targets"`
	PublicFolders []string               `json:"publicFolders,omitempty"`
	Modules       []string               `json:"modules,omitempty"`
	BuildSettings []string               `json:"buildSettings,omitempty"`
	ExportDir     string                 `json:"exportDir"`
	TraceFile     string                 `json:"traceFile"`
}

func renderReport(w io.Writer, report *build.Report, format models.OutputFormat) error {
	if format == models.OutputFormatJSON {
		modules := make([]string, 0, len(report.Modules))
		for _, m := range report.Modules {
			modules = append(modules, m.Name)
		}
		return writeJSON(w, reportJSON{
			XcodeVersion:  report.XcodeVersion,
			Targets:       report.Results,
			PublicFolders: report.PublicFolders,
			Modules:       modules,
			BuildSettings: report.BuildSettings,
			ExportDir:     report.ExportDir,
			TraceFile:     report.TraceFile,
		})
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Target", "State", "Resolve", "Duration", "Detail"})
	for _, res := range report.Results {
		if res == nil {
			continue
		}
		resolve := "ran"
		if res.ResolveSkipped {
			resolve = "cached"
		}
		detail := strings.Join(res.Artifacts, "\n")
		if !res.Succeeded() {
			detail = fmt.Sprintf("failed in %s: %s", res.FailedIn, res.Error)
		}
		t.AppendRow(table.Row{res.Target, res.State, resolve, res.Duration.Round(time.Millisecond), detail})
	}
	t.Render()

	if report.XcodeVersion != "" {
		fmt.Fprintf(w, "Xcode %s\n", report.XcodeVersion)
	}
	for _, path := range report.BuildSettings {
		fmt.Fprintf(w, "Build settings: %s\n", path)
	}
	return nil
}

type graphJSON struct {
	Cached        bool                     `json:"cached"`
	PublicFolders []string                 `json:"publicFolders"`
	Graph         meta.DependencyGraphNode `json:"graph"`
}

func renderGraph(w io.Writer, res *graph.Result, format models.OutputFormat) error {
	if format == models.OutputFormatJSON {
		return writeJSON(w, graphJSON{
			Cached:        res.Cached,
			PublicFolders: res.PublicFolders,
			Graph:         res.Graph,
		})
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Package", "Version", "Location"})
	res.Graph.Walk(func(node *meta.DependencyGraphNode, depth int) {
		location := node.URL
		if location == "" {
			location = node.Path
		}
		t.AppendRow(table.Row{strings.Repeat("  ", depth) + node.Name, node.Version, location})
	})
	t.Render()

	if len(res.PublicFolders) == 0 {
		fmt.Fprintln(w, "No public header folders")
	}
	for _, folder := range res.PublicFolders {
		fmt.Fprintf(w, "Public: %s\n", folder)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
