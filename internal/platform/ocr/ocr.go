// Package ocr wraps the Tesseract command-line engine.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrEngineUnavailable is returned when the tesseract binary cannot be found.
var ErrEngineUnavailable = errors.New("ocr: engine unavailable")

// PageSegMode is a Tesseract page segmentation mode.
type PageSegMode int

const (
	PSMAuto         PageSegMode = 3
	PSMSingleColumn PageSegMode = 4
	PSMSingleBlock  PageSegMode = 6
	PSMSingleLine   PageSegMode = 7
	PSMSparseText   PageSegMode = 11
)

// SegModes is the order modes are tried in.
var SegModes = []PageSegMode{PSMSingleBlock, PSMSingleColumn, PSMAuto, PSMSparseText, PSMSingleLine}

func (m PageSegMode) String() string {
	switch m {
	case PSMAuto:
		return "auto"
	case PSMSingleColumn:
		return "single-column"
	case PSMSingleBlock:
		return "single-block"
	case PSMSingleLine:
		return "single-line"
	case PSMSparseText:
		return "sparse-text"
	default:
		return "psm-" + strconv.Itoa(int(m))
	}
}

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, mode PageSegMode) (string, error)
}

// Runner executes a command with the given stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Config selects the binary and language.
type Config struct {
	Tesseract string // binary name or absolute path; "tesseract" when empty
	Lang      string // "eng" when empty
}

// Tesseract runs the tesseract binary once per recognition, streaming the
// image over stdin.
type Tesseract struct {
	cfg    Config
	runner Runner
	look   func(string) (string, error)
}

// NewTesseract returns an engine using cfg. The binary is resolved lazily.
func NewTesseract(cfg Config) *Tesseract {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{}, look: exec.LookPath}
}

// WithRunner replaces the command runner.
func (t *Tesseract) WithRunner(r Runner, look func(string) (string, error)) *Tesseract {
	t.runner = r
	if look != nil {
		t.look = look
	}
	return t
}

// Available reports whether the binary can be resolved.
func (t *Tesseract) Available() bool {
	_, err := t.look(t.cfg.Tesseract)
	return err == nil
}

// Recognize returns the text tesseract reads from image.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, mode PageSegMode) (string, error) {
	path, err := t.look(t.cfg.Tesseract)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	out, err := t.runner.Run(ctx, image, path,
		"stdin", "stdout",
		"--psm", strconv.Itoa(int(mode)),
		"-l", t.cfg.Lang,
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
