package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gatepass/internal/model"
	"gatepass/internal/policy"
	"gatepass/internal/service"
)

// GatePassHandler handles gate pass lifecycle endpoints.
type GatePassHandler struct {
	ledger service.GatePassService
}

// NewGatePassHandler creates a new gate pass handler.
func NewGatePassHandler(ledger service.GatePassService) *GatePassHandler {
	return &GatePassHandler{ledger: ledger}
}

// CreatePassRequest represents a student's gate pass request.
type CreatePassRequest struct {
	Reason      string `json:"reason" validate:"required,max=500"`
	Destination string `json:"destination" validate:"required,max=255"`
	FromDate    string `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate      string `json:"toDate" validate:"required,datetime=2006-01-02"`
	OutTime     string `json:"outTime" validate:"required,datetime=15:04"`
	ReturnTime  string `json:"returnTime" validate:"required,datetime=15:04"`
}

// RemarksRequest carries optional free text for decisions and gate events.
type RemarksRequest struct {
	Remarks string `json:"remarks" validate:"max=500"`
}

// Create godoc
// @Summary Request a gate pass
// @Tags gatepass
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePassRequest true "Planned departure and return"
// @Success 201 {object} model.GatePass
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass [post]
func (h *GatePassHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreatePassRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pass, err := h.ledger.Create(c.Request().Context(), actor, service.CreatePassInput{
		Reason:      req.Reason,
		Destination: req.Destination,
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
		OutTime:     req.OutTime,
		ReturnTime:  req.ReturnTime,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, pass)
}

// ListForStudent godoc
// @Summary List a student's gate passes, newest first
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Param studentId path string false "Student ID, defaults to the caller"
// @Success 200 {array} service.PassView
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass/student/{studentId} [get]
func (h *GatePassHandler) ListForStudent(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	passes, err := h.ledger.ListForStudent(c.Request().Context(), actor, c.Param("studentId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, passes)
}

// ListPending godoc
// @Summary List passes awaiting a decision
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.PassView
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass/pending [get]
func (h *GatePassHandler) ListPending(c echo.Context) error {
	return h.list(c, h.ledger.ListPending)
}

// ListApproved godoc
// @Summary List approved passes
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.PassView
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass/approved [get]
func (h *GatePassHandler) ListApproved(c echo.Context) error {
	return h.list(c, h.ledger.ListApproved)
}

// ListCurrentlyOut godoc
// @Summary List students currently outside the hostel
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.PassView
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass/currently-out [get]
func (h *GatePassHandler) ListCurrentlyOut(c echo.Context) error {
	return h.list(c, h.ledger.ListCurrentlyOut)
}

// Search godoc
// @Summary Search every gate pass
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Approved or Rejected"
// @Param student_id query string false "Student ID"
// @Param from_date query string false "Earliest departure date (YYYY-MM-DD)"
// @Param to_date query string false "Latest departure date (YYYY-MM-DD)"
// @Success 200 {array} service.PassView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /gatepass/all [get]
func (h *GatePassHandler) Search(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	passes, err := h.ledger.Search(c.Request().Context(), actor, service.SearchQuery{
		Status:    c.QueryParam("status"),
		StudentID: c.QueryParam("student_id"),
		FromDate:  c.QueryParam("from_date"),
		ToDate:    c.QueryParam("to_date"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, passes)
}

// Dashboard godoc
// @Summary Pass counters for the caller's landing page
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Router /gatepass/dashboard [get]
func (h *GatePassHandler) Dashboard(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	d, err := h.ledger.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Get godoc
// @Summary Get a gate pass
// @Tags gatepass
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Success 200 {object} service.PassView
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /gatepass/{id} [get]
func (h *GatePassHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	pass, err := h.ledger.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pass)
}

// Approve godoc
// @Summary Approve a pending gate pass
// @Tags gatepass
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Param request body RemarksRequest false "Warden remarks"
// @Success 200 {object} model.GatePass
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /gatepass/{id}/approve [post]
func (h *GatePassHandler) Approve(c echo.Context) error {
	return h.decide(c, model.OutcomeApprove)
}

// Reject godoc
// @Summary Reject a pending gate pass
// @Tags gatepass
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Param request body RemarksRequest false "Warden remarks"
// @Success 200 {object} model.GatePass
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /gatepass/{id}/reject [post]
func (h *GatePassHandler) Reject(c echo.Context) error {
	return h.decide(c, model.OutcomeReject)
}

// MarkExit godoc
// @Summary Record the student leaving the hostel
// @Tags gatepass
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Param request body RemarksRequest false "Security remarks"
// @Success 200 {object} model.GatePass
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /gatepass/{id}/exit [post]
func (h *GatePassHandler) MarkExit(c echo.Context) error {
	return h.gate(c, h.ledger.MarkExit)
}

// MarkEntry godoc
// @Summary Record the student returning to the hostel
// @Tags gatepass
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Gate pass ID"
// @Param request body RemarksRequest false "Security remarks"
// @Success 200 {object} model.GatePass
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /gatepass/{id}/entry [post]
func (h *GatePassHandler) MarkEntry(c echo.Context) error {
	return h.gate(c, h.ledger.MarkEntry)
}

func (h *GatePassHandler) list(c echo.Context, fn func(context.Context, policy.Actor) ([]service.PassView, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	passes, err := fn(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, passes)
}

func (h *GatePassHandler) decide(c echo.Context, outcome model.Outcome) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req RemarksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pass, err := h.ledger.Decide(c.Request().Context(), actor, c.Param("id"), outcome, req.Remarks)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pass)
}

type gateFunc func(ctx context.Context, actor policy.Actor, passID, remarks string) (*model.GatePass, error)

func (h *GatePassHandler) gate(c echo.Context, fn gateFunc) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req RemarksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pass, err := fn(c.Request().Context(), actor, c.Param("id"), req.Remarks)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pass)
}
