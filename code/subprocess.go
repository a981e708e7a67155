package code

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// SubprocessOptions configures a SubprocessExecutor.
type SubprocessOptions struct {
	// Interpreter and its leading arguments; the snippet is passed as a file
	// path appended to them. Default: python3.
	Interpreter []string
	// Extension of the temporary snippet file. Default: .py
	Extension string
	// Timeout bounds a run when the request does not set one. Default: 60s.
	Timeout time.Duration
	// MaxOutput caps captured stdout and stderr each, in bytes. Default: 64 KiB.
	MaxOutput int
	// Env is appended to the inherited environment.
	Env []string
}

// SubprocessExecutor runs snippets with a local interpreter. It is not a
// sandbox: the process has the permissions of the agentlab process, confined
// only by its working directory.
type SubprocessExecutor struct {
	opts SubprocessOptions
}

// NewSubprocessExecutor creates an executor.
func NewSubprocessExecutor(optFns ...func(o *SubprocessOptions)) *SubprocessExecutor {
	opts := SubprocessOptions{
		Interpreter: []string{"python3"},
		Extension:   ".py",
		Timeout:     60 * time.Second,
		MaxOutput:   64 << 10,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SubprocessExecutor{opts: opts}
}

// Execute implements Executor.
func (s *SubprocessExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return Result{}, fmt.Errorf("empty code")
	}

	if len(s.opts.Interpreter) == 0 {
		return Result{}, fmt.Errorf("no interpreter configured")
	}

	timeout := s.opts.Timeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	file, err := os.CreateTemp("", "agentlab-snippet-*"+s.opts.Extension)
	if err != nil {
		return Result{}, fmt.Errorf("create snippet file: %w", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(req.Code); err != nil {
		_ = file.Close()
		return Result{}, fmt.Errorf("write snippet file: %w", err)
	}

	if err := file.Close(); err != nil {
		return Result{}, fmt.Errorf("close snippet file: %w", err)
	}

	args := append(append([]string{}, s.opts.Interpreter[1:]...), file.Name())

	cmd := exec.CommandContext(runCtx, s.opts.Interpreter[0], args...)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), s.opts.Env...)
	cmd.WaitDelay = time.Second

	stdout := &cappedBuffer{max: s.opts.MaxOutput}
	stderr := &cappedBuffer{max: s.opts.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if runCtx.Err() != nil && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		res.Stderr = strings.TrimSpace(res.Stderr + fmt.Sprintf("\nexecution timed out after %s", timeout))

		return res, nil
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	if err != nil {
		return res, fmt.Errorf("run interpreter: %w", err)
	}

	return res, nil
}

// cappedBuffer keeps the first max bytes and counts the rest.
type cappedBuffer struct {
	buf     bytes.Buffer
	max     int
	dropped int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	if c.max <= 0 || room >= len(p) {
		c.buf.Write(p)
		return len(p), nil
	}

	if room > 0 {
		c.buf.Write(p[:room])
	}

	c.dropped += len(p) - max(room, 0)

	return len(p), nil
}

func (c *cappedBuffer) String() string {
	if c.dropped == 0 {
		return c.buf.String()
	}

	return fmt.Sprintf("%s\n...[truncated %d bytes]", c.buf.String(), c.dropped)
}
