package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Context keys shared by the middleware and the handlers.
const (
	RequestIDKey      = "request_id"
	UploadKindKey     = "upload_kind"
	UploadFilenameKey = "upload_filename"
)

// SetUpload records the upload a handler is processing so the request and
// panic logs can name it.
func SetUpload(c echo.Context, kind, filename string) {
	c.Set(UploadKindKey, kind)
	c.Set(UploadFilenameKey, filename)
}

func contextString(c echo.Context, key string) string {
	s, _ := c.Get(key).(string)
	return s
}

// withUpload adds the upload fields when a handler recorded one.
func withUpload(evt *zerolog.Event, c echo.Context) *zerolog.Event {
	kind := contextString(c, UploadKindKey)
	if kind == "" {
		return evt
	}
	return evt.Str("kind", kind).Str("filename", contextString(c, UploadFilenameKey))
}
