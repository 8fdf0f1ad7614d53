package validators

import (
	"net/http"
	"testing"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegisterRequest(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.RegisterRequest{Username: "writer", Email: "w@example.com", Password: "long-enough"}))

	err := v.Validate(&models.RegisterRequest{Username: "ab", Email: "nope", Password: "short"})
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	msg := httpErr.Message.(string)
	assert.Contains(t, msg, "Username must be at least 3 characters")
	assert.Contains(t, msg, "Email must be a valid email")
	assert.Contains(t, msg, "Password must be at least 8 characters")
}

func TestValidateStoryStatus(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&models.UpdateStoryRequest{Status: "Abandoned"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Status must be one of")
}
