package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/service"
)

// VerifyHandler serves the anonymous endpoints: letter verification and the
// company identity shown on public pages.
type VerifyHandler struct {
	verification service.VerificationService
	letters      service.LetterService
	settings     service.SettingsService
}

// NewVerifyHandler creates the public handler.
func NewVerifyHandler(verification service.VerificationService, letters service.LetterService, settings service.SettingsService) *VerifyHandler {
	return &VerifyHandler{verification: verification, letters: letters, settings: settings}
}

// CompanyResponse is the public company identity.
type CompanyResponse struct {
	Name    string `json:"name"`
	HasLogo bool   `json:"has_logo"`
}

// Lookup godoc
// @Summary Verify a letter
// @Description Public. Reports whether a letter number exists and its review outcome.
// @Tags verify
// @Produce json
// @Param number path string true "Letter number"
// @Success 200 {object} service.PublicStatus
// @Failure 404 {object} errors.ErrorResponse
// @Router /verify/{number} [get]
func (h *VerifyHandler) Lookup(c echo.Context) error {
	status, err := h.verification.Lookup(c.Request().Context(), c.Param("number"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, status)
}

// QRCode godoc
// @Summary Verification QR code
// @Tags verify
// @Produce png
// @Param number path string true "Letter number"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /verify/{number}/qr.png [get]
func (h *VerifyHandler) QRCode(c echo.Context) error {
	png, err := h.letters.VerificationImage(c.Request().Context(), c.Param("number"))
	if err != nil {
		return fail(err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/png", png)
}

// Company godoc
// @Summary Company identity
// @Tags verify
// @Produce json
// @Success 200 {object} CompanyResponse
// @Router /company [get]
func (h *VerifyHandler) Company(c echo.Context) error {
	company := h.settings.Company(c.Request().Context())
	return c.JSON(http.StatusOK, CompanyResponse{Name: company.Name, HasLogo: company.Logo != ""})
}

// Logo godoc
// @Summary Company logo
// @Tags verify
// @Produce png,jpeg,gif
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /company/logo [get]
func (h *VerifyHandler) Logo(c echo.Context) error {
	logo, err := h.settings.Logo(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	defer logo.Body.Close()
	return c.Stream(http.StatusOK, logo.ContentType, logo.Body)
}
