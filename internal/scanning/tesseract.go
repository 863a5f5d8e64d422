package scanning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner runs an external command. Tests swap it for a fake.
type Runner interface {
	Run(ctx context.Context, name string, stdin []byte, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)
	if err != nil {
		slog.Debug("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// tesseract wraps the tesseract CLI. Images are piped in as PNG and text is
// read back from stdout.
type tesseract struct {
	runner      Runner
	binary      string
	language    string
	tessdataDir string
}

func (t tesseract) args(psm int) []string {
	args := []string{"stdin", "stdout", "-l", t.language, "--oem", "3", "--psm", strconv.Itoa(psm)}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	return args
}

// recognize runs every page segmentation mode and keeps the longest output.
func (t tesseract) recognize(ctx context.Context, png []byte, modes []int) (string, error) {
	var best string
	var lastErr error
	ok := false
	for _, psm := range modes {
		stdout, stderr, err := t.runner.Run(ctx, t.binary, png, t.args(psm)...)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return "", fmt.Errorf("%w: %s not found", ErrOCRUnavailable, t.binary)
			}
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrOCRFailed, ctx.Err())
			}
			lastErr = fmt.Errorf("psm %d: %v: %s", psm, err, strings.TrimSpace(truncate(string(stderr), 512)))
			continue
		}
		ok = true
		if text := strings.TrimSpace(string(stdout)); len(text) > len(best) {
			best = text
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrOCRFailed, lastErr)
	}
	return best, nil
}
