package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/config"
	"github.com/cbclab/cbclab/internal/domain/extraction"
)

func testConfig(authMode string) *config.Config {
	return &config.Config{
		Env:            "test",
		AuthMode:       authMode,
		AuthSigningKey: strings.Repeat("k", 32),
		BodyLimit:      "1M",
		MaxUploadSize:  "5M",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		OCRWorkers:     1,
		TesseractPath:  "tesseract-not-installed",

		HGBGLThreshold:            200,
		HCTFractionMin:            1,
		HCTFractionMax:            10,
		AbsCountThousandThreshold: 100,
		DiffRescaleTolerance:      10,
		DiffRescaleMin:            85,
		DiffRescaleMax:            115,
	}
}

func testServer(authMode string) *echo.Echo {
	cfg := testConfig(authMode)
	svc := newService(cfg, nil, zerolog.Nop())
	return newServer(cfg, svc, nil, zerolog.Nop())
}

func upload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestServer_Health(t *testing.T) {
	e := testServer("jwt")
	for _, path := range []string{"/health", "/health/db"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestServer_RequiresToken(t *testing.T) {
	e := testServer("jwt")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "/api/v1/extract", "report.txt", "Hemoglobin: 13.5"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_DevExtract(t *testing.T) {
	e := testServer("development")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "/api/v1/extract", "report.txt", "Hemoglobin: 13.5 g/dL\nAge: 45"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if _, ok := result["candidate"]; !ok {
		t.Errorf("expected candidate in response, got %v", result)
	}
}

func TestServer_FHIRExtract(t *testing.T) {
	e := testServer("development")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "/fhir/$extract", "report.txt", "Hemoglobin: 13.5 g/dL"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["resourceType"] != "Bundle" {
		t.Errorf("expected Bundle, got %v", result["resourceType"])
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, upload(t, "/fhir/$extract?_format=xml", "report.txt", "Hemoglobin: 13.5 g/dL"))
	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("expected 406 for XML, got %d", rec.Code)
	}
}

func TestServer_ExtractionLogDisabled(t *testing.T) {
	e := testServer("development")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/extractions", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a database, got %d", rec.Code)
	}
}

func runExtract(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("TESSERACT_PATH", "tesseract-not-installed")
	cmd := extractCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtractCommand(t *testing.T) {
	path := writeTemp(t, "report.txt", "Hemoglobin: 13.5 g/dL\nAge: 45\n")
	out, err := runExtract(t, "--file", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp extraction.CandidateResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if resp.Candidate == nil || resp.Candidate.ParametersFound != 2 {
		t.Errorf("unexpected candidate %+v", resp.Candidate)
	}
}

func TestExtractCommand_RowAndFHIR(t *testing.T) {
	path := writeTemp(t, "batch.dat", "Patient ID,WBC,HGB\nA1,7.2,13.5\nA2,5.5,12.0\n")
	out, err := runExtract(t, "--file", path, "--kind", "csv", "--row", "1", "--fhir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"resourceType": "Bundle"`) {
		t.Errorf("expected a Bundle, got %s", out)
	}
}

func TestExtractCommand_Failure(t *testing.T) {
	path := writeTemp(t, "notes.txt", "nothing to see here")
	out, err := runExtract(t, "--file", path)
	if err == nil {
		t.Fatal("expected an error for a failed extraction")
	}
	if !strings.Contains(out, "no_parameters_found") {
		t.Errorf("expected failure body on stdout, got %s", out)
	}
}

func TestExtractCommand_MissingFile(t *testing.T) {
	if _, err := runExtract(t); err == nil {
		t.Error("expected an error without --file")
	}
	if _, err := runExtract(t, "--file", filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
