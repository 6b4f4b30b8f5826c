package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

var httpCodes = map[int]string{
	http.StatusBadRequest:            string(apperr.KindValidation),
	http.StatusUnauthorized:          string(apperr.KindTokenInvalid),
	http.StatusForbidden:             string(apperr.KindForbidden),
	http.StatusNotFound:              string(apperr.KindNotFound),
	http.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	http.StatusConflict:              string(apperr.KindConflict),
	http.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	http.StatusUnsupportedMediaType:  "UNSUPPORTED_MEDIA_TYPE",
	http.StatusTooManyRequests:       "RATE_LIMITED",
}

// ErrorHandler renders errors returned by handlers and middleware.  Internal
// errors are logged with their cause and answered with a generic message.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Error(err))
		}
		if status == http.StatusUnauthorized && c.Response().Header().Get(echo.HeaderWWWAuthenticate) == "" {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="rolegate"`)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

func render(err error) (int, errorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := apperr.HTTPStatus(ae.Kind)
		if status >= http.StatusInternalServerError {
			return status, errorBody{Error: "internal error", Code: string(apperr.KindInternal)}
		}
		return status, errorBody{Error: ae.Message, Code: string(ae.Kind), Fields: ae.Fields}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, ok := httpCodes[he.Code]
		if !ok || he.Code >= http.StatusInternalServerError {
			code = string(apperr.KindInternal)
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			msg = s
		}
		return he.Code, errorBody{Error: msg, Code: code}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Code: string(apperr.KindInternal)}
}
