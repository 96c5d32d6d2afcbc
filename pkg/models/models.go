// SPDX-License-Identifier: Apache-2.0

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensbom-generator/spmkit/meta"
)

// State of one compile target pipeline
type State int

const (
	StateUnresolved State = iota
	StateManifestGenerated
	StateDependenciesResolved
	StateCompiled
	StateArtifactStaged
	StateFailed
)

var stateNames = map[State]string{
	StateUnresolved:           "UNRESOLVED",
	StateManifestGenerated:    "MANIFEST_GENERATED",
	StateDependenciesResolved: "DEPENDENCIES_RESOLVED",
	StateCompiled:             "COMPILED",
	StateArtifactStaged:       "ARTIFACT_STAGED",
	StateFailed:               "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON reports
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TargetResult is the outcome of one compile target pipeline
type TargetResult struct {
	Target meta.CompileTarget `json:"target"`
	State  State              `json:"state"`
	// FailedIn is the last state reached before failing
	FailedIn State `json:"failedIn,omitempty"`

	// Artifacts are the staged copies of the static library
	Artifacts      []string            `json:"artifacts,omitempty"`
	Modules        []meta.ModuleConfig `json:"modules,omitempty"`
	ResolveSkipped bool                `json:"resolveSkipped"`
	TraceFile      string              `json:"traceFile,omitempty"`
	Duration       time.Duration       `json:"duration"`
	Err            error               `json:"-"`
	Error          string              `json:"error,omitempty"`
}

// Succeeded reports whether the artifact was staged
func (r *TargetResult) Succeeded() bool {
	return r.State == StateArtifactStaged
}

// OutputFormat defines an int enum of supported output formats
type OutputFormat int

const (
	OutputFormatTable OutputFormat = iota
	OutputFormatJSON
)

// ParseOutputFormat maps a format name to an OutputFormat
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(name) {
	case "", "table":
		return OutputFormatTable, nil
	case "json":
		return OutputFormatJSON, nil
	}
	return OutputFormatTable, fmt.Errorf("unsupported output format %q", name)
}
