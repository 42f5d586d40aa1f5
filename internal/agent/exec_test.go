package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellAgent(script string, onOutput OutputFunc) *ExecAgent {
	// sh -c <script> <command>: the command becomes $0
	return NewExecAgent(ExecConfig{Program: "/bin/sh", Args: []string{"-c", script}}, onOutput, nil)
}

func TestExecAgentSuccess(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	a := shellAgent(`echo "step one"; echo "ran: $0"`, func(_, line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})

	res, err := a.Execute(context.Background(), "打开美的美居应用")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Detail, "ran: 打开美的美居应用")
	assert.Equal(t, []string{"step one", "ran: 打开美的美居应用"}, lines)
}

func TestExecAgentNonZeroExit(t *testing.T) {
	res, err := shellAgent(`echo "device offline" >&2; exit 3`, nil).Execute(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDispatch))
	assert.Contains(t, err.Error(), "exit status 3")
	assert.False(t, res.Success)
	assert.Equal(t, "device offline", res.Detail)
}

func TestExecAgentTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := shellAgent(`sleep 5`, nil).Execute(ctx, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDispatch))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecAgentMissingProgram(t *testing.T) {
	_, err := NewExecAgent(ExecConfig{}, nil, nil).Execute(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrDispatch))

	_, err = NewExecAgent(ExecConfig{Program: "/nonexistent/agent"}, nil, nil).Execute(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrDispatch))
}

func TestExecAgentEnv(t *testing.T) {
	a := NewExecAgent(ExecConfig{
		Program: "/bin/sh",
		Args:    []string{"-c", `echo "$AGENT_MODEL"`},
		Env:     []string{"AGENT_MODEL=autoglm-phone"},
	}, nil, nil)
	res, err := a.Execute(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "autoglm-phone", res.Detail)
}

func TestLineWriter(t *testing.T) {
	var got []string
	w := newLineWriter(8, func(l string) { got = append(got, l) })
	w.Write([]byte("ab\r\ncd"))
	w.Write([]byte("ef\n\n  \ngh"))
	w.Flush()

	assert.Equal(t, []string{"ab", "cdef", "gh"}, got)
	tail := w.Tail()
	assert.LessOrEqual(t, len(tail), 8)
	assert.True(t, strings.HasSuffix(tail, "gh"))
}

func TestLineWriterTailKeepsRunesWhole(t *testing.T) {
	w := newLineWriter(11, func(string) {})
	// each rune is 3 bytes; keeping 11 starts the tail inside one
	w.Write([]byte("打开美的美居应用失败\n"))
	w.Flush()

	tail := w.Tail()
	assert.True(t, utf8.ValidString(tail), "tail %q", tail)
	assert.LessOrEqual(t, len(tail), 11)
	assert.True(t, strings.HasSuffix(tail, "失败"))
}

func TestLineWriterBoundsLineWithoutNewline(t *testing.T) {
	var got []string
	w := newLineWriter(8, func(l string) { got = append(got, l) })
	w.Write([]byte("空调空调空调"))
	w.Write([]byte("abc"))

	assert.LessOrEqual(t, len(w.partial), 8)
	for _, l := range got {
		assert.True(t, utf8.ValidString(l), "chunk %q", l)
		assert.LessOrEqual(t, len(l), 8)
	}
	w.Flush()
	assert.Equal(t, "空调空调空调abc", strings.Join(got, ""))
}
