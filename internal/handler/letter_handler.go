package handler

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/model"
	"letterdesk/internal/service"
)

// LetterHandler handles the authenticated letter endpoints.
type LetterHandler struct {
	letters service.LetterService
}

// NewLetterHandler creates a new letter handler.
func NewLetterHandler(letters service.LetterService) *LetterHandler {
	return &LetterHandler{letters: letters}
}

// DecisionRequest carries reviewer comments for approve and reject.
type DecisionRequest struct {
	Comments string `json:"comments" form:"comments" validate:"max=2000"`
}

// StatsResponse counts letters per status.
type StatsResponse struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Verified int64 `json:"verified"`
	Rejected int64 `json:"rejected"`
}

// Submit godoc
// @Summary Upload a letter
// @Description Stores a PDF and assigns it a letter number and verification QR code.
// @Tags letters
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param letter_file formData file true "PDF document"
// @Param require_verification formData bool false "Ask a reviewer to approve the letter"
// @Success 201 {object} model.Letter
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /letters [post]
func (h *LetterHandler) Submit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("letter_file")
	if err != nil {
		return badRequest("no file selected", "VALIDATION_ERROR")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest("unreadable upload", "VALIDATION_ERROR")
	}
	defer f.Close()

	letter, err := h.letters.Submit(c.Request().Context(), actor, service.SubmitInput{
		FileName:             fh.Filename,
		Content:              f,
		RequiresVerification: formBool(c.FormValue("require_verification")),
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, letter)
}

// List godoc
// @Summary List letters
// @Description Reviewers see every letter, users only their own.
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.LetterDetail
// @Failure 401 {object} errors.ErrorResponse
// @Router /letters [get]
func (h *LetterHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	letters, err := h.letters.List(c.Request().Context(), actor)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, letters)
}

// Stats godoc
// @Summary Letter counts by status
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Router /letters/stats [get]
func (h *LetterHandler) Stats(c echo.Context) error {
	stats, err := h.letters.Stats(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	resp := StatsResponse{
		Pending:  stats[model.LetterStatusPending],
		Verified: stats[model.LetterStatusVerified],
		Rejected: stats[model.LetterStatusRejected],
	}
	resp.Total = resp.Pending + resp.Verified + resp.Rejected
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Letter details
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param number path string true "Letter number"
// @Success 200 {object} service.LetterDetail
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{number} [get]
func (h *LetterHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	detail, err := h.letters.Get(c.Request().Context(), c.Param("number"), actor)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// Download godoc
// @Summary Download the letter PDF
// @Tags letters
// @Produce application/pdf
// @Security BearerAuth
// @Param number path string true "Letter number"
// @Success 200 {file} binary
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{number}/download [get]
func (h *LetterHandler) Download(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	dl, err := h.letters.Download(c.Request().Context(), c.Param("number"), actor)
	if err != nil {
		return fail(err)
	}
	defer dl.Body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))
	return c.Stream(http.StatusOK, "application/pdf", dl.Body)
}

// Approve godoc
// @Summary Verify a pending letter
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param number path string true "Letter number"
// @Param request body DecisionRequest false "Reviewer comments"
// @Success 200 {object} model.Letter
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{number}/approve [post]
func (h *LetterHandler) Approve(c echo.Context) error {
	return h.decide(c, model.LetterStatusVerified)
}

// Reject godoc
// @Summary Reject a pending letter
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param number path string true "Letter number"
// @Param request body DecisionRequest false "Reviewer comments"
// @Success 200 {object} model.Letter
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{number}/reject [post]
func (h *LetterHandler) Reject(c echo.Context) error {
	return h.decide(c, model.LetterStatusRejected)
}

func (h *LetterHandler) decide(c echo.Context, status model.LetterStatus) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req DecisionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	letter, err := h.letters.Transition(c.Request().Context(), c.Param("number"), actor, status, strings.TrimSpace(req.Comments))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, letter)
}

// Delete godoc
// @Summary Delete a letter and its file
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param number path string true "Letter number"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{number} [delete]
func (h *LetterHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	res, err := h.letters.Delete(c.Request().Context(), c.Param("number"), actor)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "letter deleted", Warning: res.Warning})
}

// formBool accepts the values HTML checkboxes and API clients send.
func formBool(v string) bool {
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
