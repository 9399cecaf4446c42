package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/calyxcontainers/scar-service/internal/config"
	"github.com/calyxcontainers/scar-service/internal/middleware"
	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/queue"
	"github.com/calyxcontainers/scar-service/internal/service"
	"github.com/calyxcontainers/scar-service/internal/workflow"
)

// ScarHandler exposes the workflow engine over HTTP. Authorization
// decisions live in the engine; this layer binds requests, translates
// typed errors to statuses, publishes lifecycle events and invalidates
// the stats cache after mutations.
type ScarHandler struct {
	Engine    *workflow.Engine
	Publisher *service.Publisher
	CacheCfg  config.CacheConfig
	Redis     *redis.Client
}

func NewScarHandler(e *workflow.Engine, p *service.Publisher, cc config.CacheConfig, rdb *redis.Client) *ScarHandler {
	return &ScarHandler{Engine: e, Publisher: p, CacheCfg: cc, Redis: rdb}
}

// ----- DTOs -----

type createScarReq struct {
	DateIssued       string `json:"date_issued"`
	ResponseDueDate  string `json:"response_due_date"`
	VendorID         string `json:"vendor_id"`
	VendorContactID  string `json:"vendor_contact_id"`
	NCRNumber        string `json:"ncr_number"`
	POSONumber       string `json:"po_so_number"`
	PartSKUNumber    string `json:"part_sku_number"`
	AffectedQuantity int    `json:"affected_quantity"`
	LotNumbers       string `json:"lot_numbers"`

	ProductName              string `json:"product_name"`
	DefectType               string `json:"defect_type"`
	NonconformityDescription string `json:"nonconformity_description"`
	Severity                 string `json:"severity"`
}

type verifyReq struct {
	Accept bool `json:"accept"`
	Reopen bool `json:"reopen"`
}

type scarResp struct {
	ID         string `json:"id"`
	ScarNumber string `json:"scar_number"`
	Status     string `json:"status"`

	DateIssued       string `json:"date_issued"`
	ResponseDueDate  string `json:"response_due_date"`
	VendorID         string `json:"vendor_id"`
	VendorName       string `json:"vendor_name"`
	VendorContactID  string `json:"vendor_contact_id"`
	ContactName      string `json:"contact_name"`
	ContactEmail     string `json:"contact_email"`
	NCRNumber        string `json:"ncr_number"`
	POSONumber       string `json:"po_so_number"`
	PartSKUNumber    string `json:"part_sku_number"`
	AffectedQuantity int    `json:"affected_quantity"`
	LotNumbers       string `json:"lot_numbers"`

	ProductName              string `json:"product_name"`
	DefectType               string `json:"defect_type"`
	NonconformityDescription string `json:"nonconformity_description"`
	Severity                 string `json:"severity"`

	ContainmentIsolate    string `json:"containment_isolate"`
	ContainmentScreenSort string `json:"containment_screen_sort"`
	ContainmentPreparedBy string `json:"containment_prepared_by"`
	ContainmentDate       string `json:"containment_date"`

	RootCause           string `json:"root_cause"`
	RootCauseEvidence   string `json:"root_cause_evidence"`
	RootCauseApprovedBy string `json:"root_cause_approved_by"`
	RootCauseDate       string `json:"root_cause_date"`

	CorrectiveAction     string `json:"corrective_action"`
	CorrectionApprovedBy string `json:"correction_approved_by"`
	CorrectionDate       string `json:"correction_date"`

	PreventiveAction     string `json:"preventive_action"`
	PreventionApprovedBy string `json:"prevention_approved_by"`
	PreventionDate       string `json:"prevention_date"`

	VerificationAcceptable string `json:"verification_acceptable"`
	EffectivenessCheck     string `json:"effectiveness_check"`
	VerifiedBy             string `json:"verified_by"`
	VerificationDate       string `json:"verification_date"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toScarResp(s model.Scar) scarResp {
	return scarResp{
		ID:         s.ID,
		ScarNumber: s.ScarNumber,
		Status:     string(s.Status),

		DateIssued:       s.DateIssued,
		ResponseDueDate:  s.ResponseDueDate,
		VendorID:         s.VendorID,
		VendorName:       s.VendorName,
		VendorContactID:  s.VendorContactID,
		ContactName:      s.ContactName,
		ContactEmail:     s.ContactEmail,
		NCRNumber:        s.NCRNumber,
		POSONumber:       s.POSONumber,
		PartSKUNumber:    s.PartSKUNumber,
		AffectedQuantity: s.AffectedQuantity,
		LotNumbers:       s.LotNumbers,

		ProductName:              s.ProductName,
		DefectType:               s.DefectType,
		NonconformityDescription: s.NonconformityDescription,
		Severity:                 string(s.Severity),

		ContainmentIsolate:    s.ContainmentIsolate,
		ContainmentScreenSort: s.ContainmentScreenSort,
		ContainmentPreparedBy: s.ContainmentPreparedBy,
		ContainmentDate:       s.ContainmentDate,

		RootCause:           s.RootCause,
		RootCauseEvidence:   s.RootCauseEvidence,
		RootCauseApprovedBy: s.RootCauseApprovedBy,
		RootCauseDate:       s.RootCauseDate,

		CorrectiveAction:     s.CorrectiveAction,
		CorrectionApprovedBy: s.CorrectionApprovedBy,
		CorrectionDate:       s.CorrectionDate,

		PreventiveAction:     s.PreventiveAction,
		PreventionApprovedBy: s.PreventionApprovedBy,
		PreventionDate:       s.PreventionDate,

		VerificationAcceptable: s.VerificationAcceptable,
		EffectivenessCheck:     s.EffectivenessCheck,
		VerifiedBy:             s.VerifiedBy,
		VerificationDate:       s.VerificationDate,

		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type activityResp struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// writeWorkflowError maps engine errors onto HTTP statuses.
func writeWorkflowError(c echo.Context, err error) error {
	var vErr *workflow.ValidationError
	var iErr *workflow.IncompleteSubmissionError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "scar not found"})
	case errors.Is(err, workflow.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, workflow.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields", "missing": vErr.Missing})
	case errors.As(err, &iErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "incomplete submission", "missing": iErr.Missing})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}

// afterMutation publishes the lifecycle event and drops cached stats.
// Both are best effort and never fail the request.
func (h *ScarHandler) afterMutation(ctx context.Context, s model.Scar, action, actorID string) {
	_ = h.Publisher.PublishLifecycle(ctx, queue.ScarLifecycleEvent{
		ScarID:     s.ID,
		ScarNumber: s.ScarNumber,
		Action:     action,
		Status:     string(s.Status),
		Severity:   string(s.Severity),
		VendorID:   s.VendorID,
		VendorName: s.VendorName,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	middleware.InvalidateCache(ctx, h.CacheCfg, h.Redis)
}

// Create opens a new SCAR (admin only, enforced by the engine).
func (h *ScarHandler) Create(c echo.Context) error {
	var req createScarReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	actor := middleware.ActorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Engine.CreateScar(ctx, workflow.CreateScarInput{
		DateIssued:       req.DateIssued,
		ResponseDueDate:  req.ResponseDueDate,
		VendorID:         req.VendorID,
		VendorContactID:  req.VendorContactID,
		NCRNumber:        req.NCRNumber,
		POSONumber:       req.POSONumber,
		PartSKUNumber:    req.PartSKUNumber,
		AffectedQuantity: req.AffectedQuantity,
		LotNumbers:       req.LotNumbers,

		ProductName:              req.ProductName,
		DefectType:               req.DefectType,
		NonconformityDescription: req.NonconformityDescription,
		Severity:                 model.Severity(req.Severity),
	}, actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	h.afterMutation(ctx, s, model.ActionCreated, actor.UserID)
	return c.JSON(http.StatusCreated, toScarResp(s))
}

// Get returns one SCAR, vendor-scoped for suppliers.
func (h *ScarHandler) Get(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Engine.GetScar(ctx, c.Param("id"), actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, toScarResp(s))
}

// List returns SCARs newest-first. Admins may filter by vendor_id;
// suppliers are always pinned to their own vendor by the engine.
func (h *ScarHandler) List(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	f := workflow.ScarFilter{
		VendorID: c.QueryParam("vendor_id"),
		Status:   model.ScarStatus(c.QueryParam("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scars, err := h.Engine.ListScars(ctx, f, actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	out := make([]scarResp, 0, len(scars))
	for _, s := range scars {
		out = append(out, toScarResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Stats returns dashboard aggregates, vendor-scoped for suppliers.
func (h *ScarHandler) Stats(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Engine.Stats(ctx, c.QueryParam("vendor_id"), actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// EditSection updates one named section's fields.
func (h *ScarHandler) EditSection(c echo.Context) error {
	var fields workflow.SectionFields
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	upd, err := workflow.UpdateForSection(workflow.Section(c.Param("section")), fields)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	actor := middleware.ActorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Engine.EditSection(ctx, c.Param("id"), upd, actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	middleware.InvalidateCache(ctx, h.CacheCfg, h.Redis)
	return c.JSON(http.StatusOK, toScarResp(s))
}

// Submit transitions an open SCAR to submitted (supplier action).
func (h *ScarHandler) Submit(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Engine.Submit(ctx, c.Param("id"), actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	h.afterMutation(ctx, s, model.ActionSubmitted, actor.UserID)
	return c.JSON(http.StatusOK, toScarResp(s))
}

// Verify resolves a submitted SCAR or reopens a closed one (admin
// action).
func (h *ScarHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	actor := middleware.ActorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Engine.Verify(ctx, c.Param("id"), actor, req.Accept, req.Reopen)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	action := model.ActionReturned
	if req.Reopen {
		action = model.ActionReopened
	} else if req.Accept {
		action = model.ActionClosed
	}
	h.afterMutation(ctx, s, action, actor.UserID)
	return c.JSON(http.StatusOK, toScarResp(s))
}

// Activity returns a SCAR's trail newest-first.
func (h *ScarHandler) Activity(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Engine.Activity(ctx, c.Param("id"), actor)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	out := make([]activityResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityResp{
			ID:        e.ID,
			UserID:    e.UserID,
			UserName:  e.UserName,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
