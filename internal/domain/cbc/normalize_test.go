package cbc

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(DefaultTuning(), zerolog.Nop())
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.3 g/dL", 12.3, true},
		{"--", 0, false},
		{"", 0, false},
		{"+7.5", 7.5, true},
		{"-3", -3, true},
		{"H 15.2 *", 15.2, true},
		{"1.2.3", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumeric(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseNumeric(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"Female", 0, true},
		{"M", 1, true},
		{"unspecified", 0, false},
		{"boy", 1, true},
		{"0", 0, true},
		{"Male patient", 1, true},
		{"female / male", 0, true},
	}
	for _, tt := range tests {
		got, ok := ParseGender(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseGender(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalize_Primary(t *testing.T) {
	n := newTestNormalizer()
	v, ok := n.Normalize(HGB, "13.5 g/dL", "")
	if !ok {
		t.Fatal("expected HGB 13.5 to be accepted")
	}
	if v.Value != 13.5 || v.Confidence != ConfidenceDirect || v.Parameter != HGB {
		t.Errorf("unexpected value: %+v", v)
	}
}

func TestNormalize_UnitCorrections(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		name    string
		id      ParameterID
		raw     string
		context string
		want    float64
	}{
		{"hemoglobin in g/L", HGB, "245", "", 24.5},
		{"hematocrit as fraction", HCT, "1.125", "", 112.5},
		{"absolute count per microlitre", NEAbs, "4500", "neutrophils 4500 thou/uL", 4.5},
		{"percentage times hundred", LYPct, "3000", "", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := n.Normalize(tt.id, tt.raw, tt.context)
			if !ok {
				t.Fatalf("expected %s to be accepted", tt.raw)
			}
			if v.Value != tt.want || v.Confidence != ConfidenceCorrected {
				t.Errorf("expected corrected %v, got %+v", tt.want, v)
			}
		})
	}
}

func TestNormalize_AbsoluteCountNeedsMarker(t *testing.T) {
	n := newTestNormalizer()
	if _, ok := n.Normalize(NEAbs, "4500", "neutrophils 4500"); ok {
		t.Error("expected 4500 without a unit marker to be rejected")
	}
}

func TestNormalize_CorrectionOutOfBandFallsBackToLenient(t *testing.T) {
	n := newTestNormalizer()
	// 4.2 x 100 overshoots the HCT band, so the raw value is kept with low confidence.
	v, ok := n.Normalize(HCT, "4.2", "")
	if !ok || v.Value != 4.2 || v.Confidence != ConfidenceLenient {
		t.Errorf("expected lenient 4.2, got %+v, %v", v, ok)
	}
}

func TestNormalize_Lenient(t *testing.T) {
	n := newTestNormalizer()
	v, ok := n.Normalize(PLT, "12", "")
	if !ok {
		t.Fatal("expected PLT 12 to be accepted leniently")
	}
	if v.Confidence != ConfidenceLenient {
		t.Errorf("expected lenient confidence, got %v", v.Confidence)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	n := newTestNormalizer()
	if _, ok := n.Normalize(HGB, "--", ""); ok {
		t.Error("expected -- to be rejected")
	}
	if _, ok := n.Normalize(RBC, "900", ""); ok {
		t.Error("expected RBC 900 to be rejected")
	}
	if _, ok := n.Normalize(Gender, "unspecified", ""); ok {
		t.Error("expected unspecified gender to be rejected")
	}
}

func TestNormalize_Gender(t *testing.T) {
	n := newTestNormalizer()
	v, ok := n.Normalize(Gender, " Female ", "")
	if !ok || v.Value != 0 {
		t.Errorf("expected female -> 0, got %+v, %v", v, ok)
	}
}

func TestNormalize_CustomTuning(t *testing.T) {
	tuning := DefaultTuning()
	tuning.HemoglobinGLThreshold = 50
	n := NewNormalizer(tuning, zerolog.Nop())
	v, ok := n.Normalize(HGB, "80", "")
	if !ok || v.Value != 8 {
		t.Errorf("expected 80 g/L -> 8 g/dL with lowered threshold, got %+v, %v", v, ok)
	}
}
