package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"docanalyzer/internal/shared/telemetry"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs binaries with exec.CommandContext, so a cancelled or expired
// context kills the child process.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		telemetry.Error("exec.failed", map[string]any{
			"cmd":         name,
			"args":        strings.Join(args, " "),
			"duration_ms": dur.Milliseconds(),
			"err":         err,
			"stderr":      truncate(errb.String(), 8<<10),
		})
	} else {
		telemetry.Debug("exec.ok", map[string]any{
			"cmd":          name,
			"args":         strings.Join(args, " "),
			"duration_ms":  dur.Milliseconds(),
			"stdout_bytes": out.Len(),
			"stderr_bytes": errb.Len(),
		})
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// stderrHint condenses tool stderr into something short enough for an error string.
func stderrHint(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, 200)
}
