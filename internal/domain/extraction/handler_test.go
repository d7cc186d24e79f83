package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/platform/middleware"
)

func newTestHandler() (*Handler, *mockExtractionRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

// uploadRequest builds a multipart request with a "file" part and optional
// extra form fields.
func uploadRequest(t *testing.T, target, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestExtract_Success(t *testing.T) {
	h, repo, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract", "report.txt", "Hemoglobin: 13.5 g/dL\nAge: 45", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Extract(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["multiple_records"] != false || result["kind"] != "txt" {
		t.Errorf("unexpected response %v", result)
	}
	features, _ := result["features"].(map[string]interface{})
	values, _ := features["values"].(map[string]interface{})
	if values["HGB"] != 13.5 || values["Age"] != 45.0 {
		t.Errorf("unexpected feature values %v", values)
	}
	if len(repo.records) != 1 || *repo.records[0].Filename != "report.txt" {
		t.Errorf("expected upload to be logged with its filename, got %+v", repo.records)
	}
}

func TestExtract_KindOverride(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract", "upload.bin", "WBC,HGB\n7.1,13.0\n", map[string]string{"kind": "CSV"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Extract(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if c.Get(middleware.UploadKindKey) != "csv" || c.Get(middleware.UploadFilenameKey) != "upload.bin" {
		t.Errorf("expected upload recorded on the context, got kind=%v filename=%v",
			c.Get(middleware.UploadKindKey), c.Get(middleware.UploadFilenameKey))
	}
}

func TestExtract_Listing(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract", "batch.csv", fivePatientCSV, nil)
	rec := httptest.NewRecorder()
	if err := h.Extract(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	patients, _ := result["patients"].([]interface{})
	if result["multiple_records"] != true || len(patients) != 5 {
		t.Errorf("expected 5-record listing, got %v", result)
	}
}

func TestExtract_RowSelection(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract", "batch.csv", fivePatientCSV, map[string]string{"row": "7"})
	rec := httptest.NewRecorder()
	if err := h.Extract(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["reason"] != "row_out_of_range" {
		t.Errorf("unexpected failure body %v", result)
	}
}

func TestExtract_BadRequests(t *testing.T) {
	h, _, e := newTestHandler()

	req := uploadRequest(t, "/api/v1/extract", "", "", map[string]string{"kind": "txt"})
	err := h.Extract(e.NewContext(req, httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest)

	req = uploadRequest(t, "/api/v1/extract", "batch.csv", fivePatientCSV, map[string]string{"row": "first"})
	err = h.Extract(e.NewContext(req, httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusBadRequest)
}

func TestExtract_UnsupportedKind(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract", "notes.docx", "irrelevant", nil)
	rec := httptest.NewRecorder()
	if err := h.Extract(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestExtract_FormatFHIR(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/api/v1/extract?format=fhir", "report.txt", "Hemoglobin: 13.5 g/dL\nAge: 45", nil)
	rec := httptest.NewRecorder()
	if err := h.Extract(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["resourceType"] != "Bundle" {
		t.Errorf("expected Bundle, got %v", result["resourceType"])
	}
	entries, _ := result["entry"].([]interface{})
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestExtractFHIR_Failure(t *testing.T) {
	h, _, e := newTestHandler()
	req := uploadRequest(t, "/fhir/$extract", "scan.png", "not an image", nil)
	rec := httptest.NewRecorder()
	if err := h.ExtractFHIR(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["resourceType"] != "OperationOutcome" {
		t.Errorf("expected OperationOutcome, got %v", result["resourceType"])
	}
}

func TestListExtractions_Success(t *testing.T) {
	h, _, e := newTestHandler()
	for i := 0; i < 3; i++ {
		req := uploadRequest(t, "/api/v1/extract", "report.txt", "Hemoglobin: 13.5", nil)
		h.Extract(e.NewContext(req, httptest.NewRecorder()))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions?limit=2", nil)
	rec := httptest.NewRecorder()
	if err := h.ListExtractions(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	data, _ := result["data"].([]interface{})
	if result["total"] != 3.0 || len(data) != 2 || result["has_more"] != true {
		t.Errorf("unexpected page %v", result)
	}
}

func TestListExtractions_NoLog(t *testing.T) {
	h := NewHandler(NewService(Config{}, nil, nil, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions", nil)
	err := h.ListExtractions(echo.New().NewContext(req, httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusNotFound)
}

func TestListExtractions_RepoError(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.err = errors.New("connection reset")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions", nil)
	err := h.ListExtractions(e.NewContext(req, httptest.NewRecorder()))
	expectHTTPError(t, err, http.StatusInternalServerError)
}
