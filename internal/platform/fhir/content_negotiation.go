package fhir

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// FHIRContentType is the FHIR JSON content type with charset.
const FHIRContentType = "application/fhir+json; charset=utf-8"

// ContentNegotiationMiddleware accepts only JSON renditions of FHIR output.
// The _format query parameter wins over the Accept header; XML is refused
// with 406 and an OperationOutcome body.
func ContentNegotiationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if format := c.QueryParam("_format"); format != "" {
				switch {
				case isJSONFormat(format):
					c.Response().Header().Set(echo.HeaderContentType, FHIRContentType)
					return next(c)
				case isXMLFormat(format):
					return c.JSON(http.StatusNotAcceptable, NotSupportedOutcome("XML format is not supported. Use application/fhir+json."))
				default:
					return c.JSON(http.StatusNotAcceptable, NotSupportedOutcome("Unsupported _format value: "+format))
				}
			}

			if accept := c.Request().Header.Get("Accept"); accept != "" && !negotiateAccept(accept) {
				return c.JSON(http.StatusNotAcceptable, NotSupportedOutcome("Accept header does not include a supported FHIR content type. Use application/fhir+json."))
			}
			c.Response().Header().Set(echo.HeaderContentType, FHIRContentType)
			return next(c)
		}
	}
}

// normalizeFormat lowercases raw and restores the "+" that query decoding
// turns into a space ("application/fhir json").
func normalizeFormat(raw string) string {
	f := strings.TrimSpace(strings.ToLower(raw))
	f = strings.ReplaceAll(f, "fhir json", "fhir+json")
	return strings.ReplaceAll(f, "fhir xml", "fhir+xml")
}

func isJSONFormat(format string) bool {
	switch normalizeFormat(format) {
	case "json", "application/json", "application/fhir+json":
		return true
	}
	return false
}

func isXMLFormat(format string) bool {
	switch normalizeFormat(format) {
	case "xml", "application/xml", "application/fhir+xml":
		return true
	}
	return false
}

// negotiateAccept reports whether any media type in accept is JSON-compatible.
func negotiateAccept(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch mediaType {
		case "application/fhir+json", "application/json", "json", "*/*":
			return true
		}
	}
	return false
}
