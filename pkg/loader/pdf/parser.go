package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const parseTimeout = 30 * time.Second

var reBlankRuns = regexp.MustCompile(`\n{3,}`)

// ErrNoPdftotext is returned when the pdftotext binary is not installed.
var ErrNoPdftotext = errors.New("pdftotext not found in PATH")

func parsePDF(ctx context.Context, input []byte) ([]byte, error) {
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPdftotext, err)
	}

	tmpDir, err := os.MkdirTemp("", "pdfextract-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, input, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"-enc", "UTF-8",
		"-eol", "unix",
		"-nopgbrk",
		"-q",
		pdfPath,
		"-",
	)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("pdftotext timed out after %s", parseTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return normalizeText(string(out)), nil
}

func normalizeText(text string) []byte {
	text = strings.TrimSpace(text)
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	if text != "" {
		text += "\n"
	}
	return []byte(text)
}
