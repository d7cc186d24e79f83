package ocr

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingRunner struct {
	name  string
	args  []string
	stdin []byte
	out   string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	r.name, r.args, r.stdin = name, args, stdin
	return []byte(r.out), r.err
}

func found(name string) (string, error) { return "/usr/bin/" + name, nil }

func missing(string) (string, error) { return "", errors.New("not found") }

func TestTesseract_Recognize(t *testing.T) {
	rr := &recordingRunner{out: "WBC 7.2\n"}
	eng := NewTesseract(Config{}).WithRunner(rr, found)

	text, err := eng.Recognize(context.Background(), []byte("png"), PSMSparseText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "WBC 7.2\n" {
		t.Errorf("unexpected text %q", text)
	}
	if rr.name != "/usr/bin/tesseract" {
		t.Errorf("unexpected binary %s", rr.name)
	}
	want := []string{"stdin", "stdout", "--psm", "11", "-l", "eng"}
	if !reflect.DeepEqual(rr.args, want) {
		t.Errorf("args = %v, want %v", rr.args, want)
	}
	if string(rr.stdin) != "png" {
		t.Error("expected image on stdin")
	}
}

func TestTesseract_Unavailable(t *testing.T) {
	eng := NewTesseract(Config{Tesseract: "/opt/none/tesseract"}).WithRunner(&recordingRunner{}, missing)
	if eng.Available() {
		t.Error("expected engine to be unavailable")
	}
	_, err := eng.Recognize(context.Background(), nil, PSMAuto)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestTesseract_RunError(t *testing.T) {
	eng := NewTesseract(Config{Lang: "deu"}).WithRunner(&recordingRunner{err: errors.New("boom")}, found)
	if _, err := eng.Recognize(context.Background(), nil, PSMAuto); err == nil {
		t.Error("expected error")
	}
}

func TestSegModes_Order(t *testing.T) {
	want := []int{6, 4, 3, 11, 7}
	for i, m := range SegModes {
		if int(m) != want[i] {
			t.Errorf("mode %d: expected %d, got %d", i, want[i], m)
		}
	}
	if PSMSingleBlock.String() != "single-block" || PageSegMode(13).String() != "psm-13" {
		t.Error("unexpected mode names")
	}
}
