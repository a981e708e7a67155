package code

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shExecutor(t *testing.T, optFns ...func(o *SubprocessOptions)) *SubprocessExecutor {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	fns := append([]func(o *SubprocessOptions){func(o *SubprocessOptions) {
		o.Interpreter = []string{"sh"}
		o.Extension = ".sh"
	}}, optFns...)

	return NewSubprocessExecutor(fns...)
}

func TestSubprocessExecutor_Output(t *testing.T) {
	exec := shExecutor(t)
	dir := t.TempDir()

	res, err := exec.Execute(context.Background(), Request{Code: "echo hello; pwd; echo oops >&2", Dir: dir})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "hello")
	assert.Contains(t, res.Stdout, dir)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestSubprocessExecutor_NonZeroExitIsAResult(t *testing.T) {
	res, err := shExecutor(t).Execute(context.Background(), Request{Code: "exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestSubprocessExecutor_Timeout(t *testing.T) {
	exec := shExecutor(t, func(o *SubprocessOptions) { o.Timeout = 100 * time.Millisecond })

	res, err := exec.Execute(context.Background(), Request{Code: "sleep 5"})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestSubprocessExecutor_EmptyCode(t *testing.T) {
	_, err := NewSubprocessExecutor().Execute(context.Background(), Request{Code: "  "})
	assert.Error(t, err)
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))

	assert.Equal(t, "abcd\n...[truncated 3 bytes]", b.String())
}
