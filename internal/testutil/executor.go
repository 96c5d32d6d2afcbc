// SPDX-License-Identifier: Apache-2.0

// Package testutil provides fakes for tests that drive external tools.
package testutil

import (
	"strings"
	"sync"

	"github.com/opensbom-generator/spmkit/internal/helper"
)

// Call is one recorded invocation
type Call struct {
	Name string
	Args []string
	Dir  string
}

// Line is the command line of the call
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Arg returns the value following flag, or "" if flag is absent
func (c Call) Arg(flag string) string {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == flag {
			return c.Args[i+1]
		}
	}
	return ""
}

// Handler produces the result of a matched call
type Handler func(call Call) (*helper.Result, error)

type rule struct {
	pattern string
	handler Handler
}

// FakeExecutor implements helper.Executor. Calls are matched against the
// registered patterns (substring of the command line) in registration
// order; unmatched calls succeed with empty output. Safe for concurrent use.
type FakeExecutor struct {
	mu    sync.Mutex
	rules []rule
	calls []Call
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// On registers handler for calls whose command line contains pattern
func (f *FakeExecutor) On(pattern string, handler Handler) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, handler: handler})
	return f
}

func (f *FakeExecutor) Execute(name string, args []string, dir string) (*helper.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...), Dir: dir}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	var handler Handler
	for _, r := range f.rules {
		if strings.Contains(call.Line(), r.pattern) {
			handler = r.handler
			break
		}
	}
	f.mu.Unlock()

	if handler == nil {
		return &helper.Result{}, nil
	}
	return handler(call)
}

// Calls returns the recorded calls in order
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many recorded calls contain pattern
func (f *FakeExecutor) Count(pattern string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.Line(), pattern) {
			n++
		}
	}
	return n
}

// Reply answers with stdout and a zero exit code
func Reply(stdout string) Handler {
	return func(Call) (*helper.Result, error) {
		return &helper.Result{Stdout: stdout}, nil
	}
}

// Fail answers with output on stderr and exit code 1
func Fail(stderr string) Handler {
	return func(Call) (*helper.Result, error) {
		return &helper.Result{Stderr: stderr, ExitCode: 1}, nil
	}
}
