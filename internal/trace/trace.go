// SPDX-License-Identifier: Apache-2.0

// Package trace records nested stage timings of one task and writes them
// as a YAML report.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Status of a span
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Tracer records the spans of one task. It is not safe for concurrent use;
// every task owns its tracer and report file.
type Tracer struct {
	id      string
	task    string
	path    string
	started time.Time
	spans   []*Span
	now     func() time.Time
}

// New creates a tracer for task whose report is written to reportPath
func New(task, reportPath string) *Tracer {
	return &Tracer{
		id:      uuid.New().String(),
		task:    task,
		path:    reportPath,
		started: time.Now(),
		now:     time.Now,
	}
}

// ID identifies this run of the task
func (t *Tracer) ID() string { return t.id }

// Path is where Write stores the report
func (t *Tracer) Path() string { return t.path }

// Start opens a top level span
func (t *Tracer) Start(name string) *Span {
	s := &Span{tracer: t, name: name, started: t.now(), status: StatusRunning}
	t.spans = append(t.spans, s)
	return s
}

// Span is one timed stage. Spans end exactly once; later calls to End,
// Skip or Fail are ignored.
type Span struct {
	tracer   *Tracer
	name     string
	started  time.Time
	ended    time.Time
	status   Status
	detail   string
	children []*Span
}

// Start opens a child span
func (s *Span) Start(name string) *Span {
	child := &Span{tracer: s.tracer, name: name, started: s.tracer.now(), status: StatusRunning}
	s.children = append(s.children, child)
	return child
}

// End closes the span successfully
func (s *Span) End() {
	s.finish(StatusOK, "")
}

// Skip closes a span whose work was not needed
func (s *Span) Skip(reason string) {
	s.finish(StatusSkipped, reason)
}

// Fail closes the span with err
func (s *Span) Fail(err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	s.finish(StatusFailed, detail)
}

func (s *Span) finish(status Status, detail string) {
	if s.status != StatusRunning {
		return
	}
	s.status = status
	s.detail = detail
	s.ended = s.tracer.now()
}

// Report is the serialized form of a tracer
type Report struct {
	ID       string        `yaml:"id"`
	Task     string        `yaml:"task"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	Spans    []SpanReport  `yaml:"spans"`
}

// SpanReport is the serialized form of a span
type SpanReport struct {
	Name     string        `yaml:"name"`
	Status   Status        `yaml:"status"`
	Detail   string        `yaml:"detail,omitempty"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	Spans    []SpanReport  `yaml:"spans,omitempty"`
}

// Report snapshots the spans recorded so far. Spans still running are
// reported with their duration up to now.
func (t *Tracer) Report() *Report {
	now := t.now()
	r := &Report{ID: t.id, Task: t.task, Started: t.started, Duration: now.Sub(t.started)}
	for _, s := range t.spans {
		r.Spans = append(r.Spans, s.report(now))
	}
	return r
}

func (s *Span) report(now time.Time) SpanReport {
	end := s.ended
	if s.status == StatusRunning {
		end = now
	}
	r := SpanReport{
		Name:     s.name,
		Status:   s.status,
		Detail:   s.detail,
		Started:  s.started,
		Duration: end.Sub(s.started),
	}
	for _, c := range s.children {
		r.Spans = append(r.Spans, c.report(now))
	}
	return r
}

// Write stores the report at the tracer's path
func (t *Tracer) Write() error {
	data, err := yaml.Marshal(t.Report())
	if err != nil {
		return fmt.Errorf("encoding trace report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o644) // nolint:gosec
}

// ReadReport loads a report written by Tracer.Write
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding trace report %s: %w", path, err)
	}
	return r, nil
}

// Find returns the first span named name, searching depth first
func (r *Report) Find(name string) (SpanReport, bool) {
	return find(r.Spans, name)
}

func find(spans []SpanReport, name string) (SpanReport, bool) {
	for _, s := range spans {
		if s.Name == name {
			return s, true
		}
		if found, ok := find(s.Spans, name); ok {
			return found, true
		}
	}
	return SpanReport{}, false
}
