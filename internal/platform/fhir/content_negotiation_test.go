package fhir

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func runNegotiation(t *testing.T, target, accept string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ContentNegotiationMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, `{"resourceType":"Bundle"}`)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestContentNegotiation_DefaultContentType(t *testing.T) {
	rec := runNegotiation(t, "/fhir/$extract", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != FHIRContentType {
		t.Errorf("expected Content-Type %q, got %q", FHIRContentType, ct)
	}
}

func TestContentNegotiation_FormatJSON(t *testing.T) {
	for _, format := range []string{"json", "application/json", "application/fhir+json", "application/fhir json"} {
		t.Run(format, func(t *testing.T) {
			rec := runNegotiation(t, "/fhir/$extract?_format="+strings.ReplaceAll(format, " ", "%20"), "")
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != FHIRContentType {
				t.Errorf("expected Content-Type %q, got %q", FHIRContentType, ct)
			}
		})
	}
}

func TestContentNegotiation_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
	}{
		{"format xml", "/fhir/$extract?_format=xml", ""},
		{"format fhir xml", "/fhir/$extract?_format=application/fhir%2Bxml", ""},
		{"format unknown", "/fhir/$extract?_format=turtle", ""},
		{"accept xml only", "/fhir/$extract", "application/fhir+xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runNegotiation(t, tt.target, tt.accept)
			if rec.Code != http.StatusNotAcceptable {
				t.Errorf("expected 406, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "OperationOutcome") {
				t.Errorf("expected OperationOutcome body, got %s", rec.Body.String())
			}
		})
	}
}

func TestContentNegotiation_AcceptWithQuality(t *testing.T) {
	rec := runNegotiation(t, "/fhir/$extract", "application/xml;q=0.9, application/json;q=0.8")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
