// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/release-utils/command"
)

// Result is the outcome of one external process
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports a zero exit code
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Combined returns stdout followed by stderr
func (r *Result) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	}
	return strings.TrimRight(r.Stdout, "\n") + "\n" + r.Stderr
}

// Executor runs an external command in a directory and waits for it to
// exit. A non-zero exit is reported through Result, not as an error; the
// error is reserved for processes that could not be run at all.
type Executor interface {
	Execute(name string, args []string, dir string) (*Result, error)
}

// CommandExecutor runs processes on the host
type CommandExecutor struct{}

func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

func (e *CommandExecutor) Execute(name string, args []string, dir string) (*Result, error) {
	logrus.Debugf("running %s %s (in %s)", name, strings.Join(args, " "), dir)

	var cmd *command.Command
	if dir == "" {
		cmd = command.New(name, args...)
	} else {
		cmd = command.NewWithWorkDir(dir, name, args...)
	}
	status, err := cmd.RunSilent()
	if status == nil {
		if err == nil {
			err = fmt.Errorf("no status")
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}

	return &Result{
		Stdout:   status.Output(),
		Stderr:   status.Error(),
		ExitCode: status.ExitCode(),
	}, nil
}
