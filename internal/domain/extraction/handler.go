package extraction

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cbclab/cbclab/internal/platform/auth"
	"github.com/cbclab/cbclab/internal/platform/middleware"
	"github.com/cbclab/cbclab/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.POST("/extract", h.Extract, auth.RequireRole("clinician", "lab"))
	api.GET("/extractions", h.ListExtractions, auth.RequireRole("admin"))

	fhirGroup.POST("/$extract", h.ExtractFHIR, auth.RequireRole("clinician", "lab"))
}

// Extract accepts a multipart upload in the "file" field. The kind comes
// from the "kind" form field or the file extension; "row" selects a record
// of a multi-record table.
func (h *Handler) Extract(c echo.Context) error {
	return h.extract(c, c.QueryParam("format") == "fhir")
}

func (h *Handler) ExtractFHIR(c echo.Context) error {
	return h.extract(c, true)
}

func (h *Handler) extract(c echo.Context, asFHIR bool) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	kind := KindFromFilename(fh.Filename)
	if k := c.FormValue("kind"); k != "" {
		kind = ParseKind(k)
	}

	middleware.SetUpload(c, string(kind), fh.Filename)

	opts := Options{Filename: fh.Filename}
	if v := strings.TrimSpace(c.FormValue("row")); v != "" {
		row, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "row must be an integer")
		}
		opts.Row = &row
	}

	res := h.svc.Process(c.Request().Context(), data, kind, opts)
	status, body := Render(res, asFHIR)
	return c.JSON(status, body)
}

func (h *Handler) ListExtractions(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListExtractions(c.Request().Context(), p.Limit, p.Offset)
	if errors.Is(err, ErrNoLog) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
