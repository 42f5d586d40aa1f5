// Package agent submits rendered commands to the external automation agent.
package agent

import (
	"context"
	"errors"
)

// ErrDispatch is the sentinel every agent failure unwraps to.
var ErrDispatch = errors.New("agent dispatch failed")

// Result is what the agent reported for one command.
type Result struct {
	Success bool
	Detail  string
}

// Executor runs a rendered command on the automation agent. A nil error
// means the agent reported success; failures wrap ErrDispatch and still
// return whatever detail the agent produced.
type Executor interface {
	Execute(ctx context.Context, command string) (Result, error)
}

// OutputFunc receives agent output lines while a command runs.
type OutputFunc func(command, line string)

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, command string) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, command string) (Result, error) {
	return f(ctx, command)
}
