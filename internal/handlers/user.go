package handlers

import (
	"net/http"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const maxAvatarBytes = 5 << 20

// UserHandler handles profile and account requests
type UserHandler struct {
	accounts *services.AccountService
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// RegisterPublicRoutes registers routes that work without a token.
func (h *UserHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/users/:id", h.GetProfile)
}

// RegisterProfileRoutes registers routes that act on the caller's account.
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/following", h.GetFollowing)
	g.PUT("/users/profile", h.UpdateProfile)
	g.PUT("/users/password", h.UpdatePassword)
	g.PUT("/users/preferences", h.UpdatePreferences)
	g.POST("/users/upload-avatar", h.UploadAvatar)
	g.DELETE("/users/avatar", h.RemoveAvatar)
	g.DELETE("/users/account", h.DeleteAccount)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	profile, err := h.accounts.GetProfile(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) GetFollowing(c echo.Context) error {
	following, err := h.accounts.GetFollowing(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, following)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.accounts.UpdateProfile(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdatePassword(c echo.Context) error {
	var req models.UpdatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.UpdatePassword(c.Request().Context(), middleware.UserID(c), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated"})
}

func (h *UserHandler) UpdatePreferences(c echo.Context) error {
	var req models.UpdatePreferencesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	prefs, err := h.accounts.UpdatePreferences(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// UploadAvatar expects a multipart form with the image in the "avatar" field.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}
	if file.Size > maxAvatarBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "avatar must be at most 5MB")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is unreadable")
	}
	defer src.Close()

	profile, err := h.accounts.UploadAvatar(c.Request().Context(), middleware.UserID(c),
		file.Filename, src, file.Size, file.Header.Get(echo.HeaderContentType))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) RemoveAvatar(c echo.Context) error {
	profile, err := h.accounts.RemoveAvatar(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) DeleteAccount(c echo.Context) error {
	if err := h.accounts.DeleteAccount(c.Request().Context(), middleware.UserID(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
