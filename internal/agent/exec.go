package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"home_dispatch/internal/logger"
)

const (
	defaultOutputLimit = 4096
	waitDelay          = 2 * time.Second
)

// ExecConfig describes the agent program. The rendered command is appended
// as the last argument.
type ExecConfig struct {
	Program     string
	Args        []string
	Dir         string
	Env         []string // KEY=VALUE, added to the inherited environment
	OutputLimit int      // bytes of output kept for Result.Detail
}

// ExecAgent runs the automation agent as a subprocess per command.
// Exit status 0 is success.
type ExecAgent struct {
	cfg      ExecConfig
	log      *logger.Logger
	onOutput OutputFunc
}

// NewExecAgent creates a subprocess agent. onOutput may be nil.
func NewExecAgent(cfg ExecConfig, onOutput OutputFunc, log *logger.Logger) *ExecAgent {
	if cfg.OutputLimit <= 0 {
		cfg.OutputLimit = defaultOutputLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ExecAgent{cfg: cfg, log: log, onOutput: onOutput}
}

// Execute implements Executor.
func (a *ExecAgent) Execute(ctx context.Context, command string) (Result, error) {
	if a.cfg.Program == "" {
		return Result{}, fmt.Errorf("%w: no agent program configured", ErrDispatch)
	}

	args := append(append([]string(nil), a.cfg.Args...), command)
	cmd := exec.CommandContext(ctx, a.cfg.Program, args...)
	cmd.Dir = a.cfg.Dir
	if len(a.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), a.cfg.Env...)
	}
	cmd.WaitDelay = waitDelay

	out := newLineWriter(a.cfg.OutputLimit, func(line string) {
		a.log.Debugw("agent_output", "command", command, "line", line)
		if a.onOutput != nil {
			a.onOutput(command, line)
		}
	})
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.Flush()
	detail := out.Tail()

	switch {
	case err == nil:
		return Result{Success: true, Detail: detail}, nil
	case ctx.Err() != nil:
		return Result{Detail: detail}, fmt.Errorf("%w: %v", ErrDispatch, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Detail: detail}, fmt.Errorf("%w: exit status %d", ErrDispatch, exitErr.ExitCode())
	}
	return Result{Detail: detail}, fmt.Errorf("%w: %v", ErrDispatch, err)
}

// lineWriter splits output into lines for the callback and keeps the last
// limit bytes. Lines longer than limit are emitted in rune-aligned chunks.
type lineWriter struct {
	mu      sync.Mutex
	limit   int
	partial []byte
	tail    []byte
	emit    func(string)
}

func newLineWriter(limit int, emit func(string)) *lineWriter {
	return &lineWriter{limit: limit, emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tail = append(w.tail, p...)
	if over := len(w.tail) - w.limit; over > 0 {
		w.tail = w.tail[over:]
		for len(w.tail) > 0 && !utf8.RuneStart(w.tail[0]) {
			w.tail = w.tail[1:]
		}
	}

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.send(w.partial[:i])
		w.partial = w.partial[i+1:]
	}
	for len(w.partial) > w.limit {
		cut := runeBoundary(w.partial, w.limit)
		w.send(w.partial[:cut])
		w.partial = w.partial[cut:]
	}
	return len(p), nil
}

// runeBoundary returns the largest cut <= n that does not split a rune in b.
// A run of continuation bytes with no rune start is cut at n.
func runeBoundary(b []byte, n int) int {
	for cut := n; cut > 0; cut-- {
		if utf8.RuneStart(b[cut]) {
			return cut
		}
	}
	return n
}

// Flush emits a trailing line without a newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.send(w.partial)
		w.partial = nil
	}
}

func (w *lineWriter) send(b []byte) {
	line := strings.TrimRight(string(b), "\r")
	if strings.TrimSpace(line) != "" {
		w.emit(line)
	}
}

// Tail returns the retained output, trimmed.
func (w *lineWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.tail))
}
