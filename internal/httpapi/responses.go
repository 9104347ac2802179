package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxRequestBodyBytes = 1 * 1024 * 1024

type apiError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type apiEnvelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, apiEnvelope{Success: true, Data: data})
}

func created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, apiEnvelope{Success: true, Data: data})
}

func fail(c echo.Context, status int, message string, fields map[string]string) error {
	return c.JSON(status, apiEnvelope{
		Success: false,
		Error:   &apiError{Message: message, Fields: fields},
	})
}

func failValidation(c echo.Context, fields map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", fields)
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func failConflict(c echo.Context, message string) error {
	return fail(c, http.StatusConflict, message, nil)
}

func internalError(c echo.Context, message string) error {
	return fail(c, http.StatusInternalServerError, message, nil)
}

func readRequestBody(c echo.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxRequestBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxRequestBodyBytes)
	}
	return body, nil
}
