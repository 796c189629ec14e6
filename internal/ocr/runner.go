package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// ErrToolMissing means an external binary is not installed or not on PATH.
var ErrToolMissing = errors.New("external tool not found")

// stderrCap bounds how much tool output is kept on errors and in logs.
const stderrCap = 8 << 10

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ToolError is a failed external command with its exit code and captured stderr.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited %d: %v: %s", e.Tool, e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s exited %d: %v", e.Tool, e.ExitCode, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("ocr.exec.start", "tool", name, "args", len(args))

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)
	if err == nil {
		logger.Debug("ocr.exec.ok",
			"tool", name,
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
		return out.Bytes(), errb.Bytes(), nil
	}

	terr := &ToolError{Tool: name, ExitCode: -1, Stderr: truncate(errb.String(), stderrCap), Err: err}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		terr.Err = fmt.Errorf("%w: %w", ErrToolMissing, err)
	case errors.As(err, &exitErr):
		terr.ExitCode = exitErr.ExitCode()
	}
	logger.Error("ocr.exec.failed",
		"tool", name,
		"exit_code", terr.ExitCode,
		"duration_ms", dur.Milliseconds(),
		"error", err,
		"stderr", terr.Stderr,
	)
	return out.Bytes(), errb.Bytes(), terr
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
