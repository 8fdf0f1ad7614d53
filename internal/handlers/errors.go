package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/labstack/echo/v4"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindNotFound:           http.StatusNotFound,
	apperror.KindInvalidOperation:   http.StatusBadRequest,
	apperror.KindUnauthorized:       http.StatusForbidden,
	apperror.KindConflict:           http.StatusConflict,
	apperror.KindStorageUnavailable: http.StatusServiceUnavailable,
}

// httpError turns a service error into an echo.HTTPError whose body carries
// the message and a stable code.
func httpError(err error) error {
	kind := apperror.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return echo.NewHTTPError(status, echo.Map{
		"message": apperror.MessageOf(err),
		"code":    string(kind),
	}).SetInternal(err)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

func uintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}
