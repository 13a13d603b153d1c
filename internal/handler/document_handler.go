package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"gatepass/internal/service"
)

// DocumentHandler serves printable passes and checks scanned ones.
type DocumentHandler struct {
	docs service.DocumentService
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(docs service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// VerifyRequest carries the text decoded from a pass's QR code.
type VerifyRequest struct {
	Payload string `json:"payload" validate:"required,max=512"`
}

// Download godoc
// @Summary Download the printable document of an approved pass
// @Tags documents
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Success 200 {file} binary
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 412 {object} errors.ErrorResponse
// @Router /gatepass/{id}/document [get]
func (h *DocumentHandler) Download(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	doc, err := h.docs.Download(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, "application/pdf", doc.Content)
}

// Verify godoc
// @Summary Verify a scanned gate pass
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyRequest true "Scanned QR payload"
// @Success 200 {object} service.Verification
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /gatepass/verify [post]
func (h *DocumentHandler) Verify(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req VerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	v, err := h.docs.Verify(c.Request().Context(), actor, req.Payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
