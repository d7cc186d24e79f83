package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/platform/fhir"
)

// Recovery turns a handler panic into a 500. The log line names the upload
// when the handler got far enough to record it. Routes under /fhir/ answer
// with an OperationOutcome.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				req := c.Request()
				withUpload(logger.Error(), c).
					Str("request_id", contextString(c, RequestIDKey)).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				if strings.HasPrefix(req.URL.Path, "/fhir/") && !c.Response().Committed {
					err = c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("internal server error"))
					return
				}
				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
