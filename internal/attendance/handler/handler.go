// Package handler exposes the attendance engine over HTTP. It stays thin:
// decode, scope-check, delegate, encode.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffops/internal/attendance"
	"staffops/internal/platform/middleware"
	"staffops/internal/policy"
	"staffops/internal/transport/http/shared"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

// Service is the attendance surface the handler needs.
type Service interface {
	Punch(ctx context.Context, userID id.UserID, action attendance.Action) (*attendance.Record, error)
	Today(ctx context.Context, userID id.UserID) (*attendance.Record, error)
	History(ctx context.Context, scope policy.Scope) ([]*attendance.Record, error)
}

// Reporter is the aggregation surface the handler needs.
type Reporter interface {
	Summary(ctx context.Context, userID id.UserID) (*attendance.Summary, error)
	StaffReport(ctx context.Context, month string) (*attendance.Report, error)
}

type Handler struct {
	logger   *slog.Logger
	service  Service
	reporter Reporter
}

func New(service Service, reporter Reporter, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		reporter: reporter,
	}
}

// Register mounts the attendance routes. The caller-facing routes need only
// authentication; the org-wide report additionally requires the admin role.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attendance/punch", h.handlePunch)
	r.Get("/attendance/today", h.handleToday)
	r.Get("/attendance/history", h.handleHistory)
	r.Get("/attendance/summary", h.handleSummary)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(h.logger, id.RoleAdmin))
		admin.Get("/attendance/report", h.handleStaffReport)
	})
}

type punchRequest struct {
	Action string `json:"action"`
}

func (h *Handler) handlePunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx))
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req punchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	action, err := attendance.ParseAction(req.Action)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid punch action"))
		return
	}

	record, err := h.service.Punch(ctx, userID, action)
	if err != nil {
		h.logFailure(ctx, "punch failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.service.Today(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "today lookup failed", err)
		shared.WriteError(w, err)
		return
	}
	if record == nil {
		shared.WriteJSON(w, http.StatusOK, map[string]any{"record": nil})
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)

	var requested id.UserID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := id.ParseUserID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user_id"))
			return
		}
		requested = parsed
	}

	scope, err := policy.ScopeFor(caller, role, policy.KindAttendance, requested)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	records, err := h.service.History(ctx, scope)
	if err != nil {
		h.logFailure(ctx, "history query failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.reporter.Summary(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "summary failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleStaffReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.reporter.StaffReport(ctx, r.URL.Query().Get("month"))
	if err != nil {
		h.logFailure(ctx, "staff report failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
}
