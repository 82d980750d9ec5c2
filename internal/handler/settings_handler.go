package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/service"
)

// SettingsHandler exposes admin settings management.
type SettingsHandler struct {
	svc service.SettingsService
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(svc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// UpdateSettingsRequest holds the settings to change. Omitted keys are kept.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required,min=1"`
}

// TestEmailResponse reports the outcome of a test email.
type TestEmailResponse struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
}

// LogoResponse reports where the uploaded logo was stored.
type LogoResponse struct {
	StorageKey string `json:"storage_key"`
}

// Get godoc
// @Summary Read settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Router /settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	values, err := h.svc.All(c.Request().Context(), actor)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, values)
}

// Update godoc
// @Summary Update settings
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateSettingsRequest true "Settings"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req UpdateSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.Update(c.Request().Context(), actor, req.Settings); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "settings updated"})
}

// UploadLogo godoc
// @Summary Upload company logo
// @Tags settings
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param logo formData file true "Logo image"
// @Success 200 {object} LogoResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /settings/logo [post]
func (h *SettingsHandler) UploadLogo(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("logo")
	if err != nil {
		return badRequest("no file selected", "VALIDATION_ERROR")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest("unreadable upload", "VALIDATION_ERROR")
	}
	defer f.Close()

	key, err := h.svc.UploadLogo(c.Request().Context(), actor, fh.Filename, f)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, LogoResponse{StorageKey: key})
}

// TestEmail godoc
// @Summary Send a test email to the admin address
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TestEmailResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /settings/test-email [post]
func (h *SettingsHandler) TestEmail(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	res, err := h.svc.TestEmail(c.Request().Context(), actor)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, TestEmailResponse{Delivered: res.Delivered, Detail: res.Detail})
}

// ClearCache godoc
// @Summary Drop cached company settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /settings/cache [delete]
func (h *SettingsHandler) ClearCache(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.svc.ClearCache(c.Request().Context(), actor); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "settings cache cleared"})
}
