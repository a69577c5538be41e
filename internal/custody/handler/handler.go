// Package handler exposes the custody engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffops/internal/custody"
	"staffops/internal/platform/middleware"
	"staffops/internal/policy"
	"staffops/internal/transport/http/shared"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

// Service is the custody surface the handler needs.
type Service interface {
	Register(ctx context.Context, input custody.RegisterInput) (*custody.Record, error)
	Get(ctx context.Context, assetID id.AssetID) (*custody.Record, error)
	List(ctx context.Context) ([]*custody.Record, error)
	RecordMovement(ctx context.Context, assetID id.AssetID, input custody.MovementInput) (*custody.Record, error)
	AmendMovement(ctx context.Context, assetID id.AssetID, movementID id.MovementID, input custody.AmendInput) (*custody.Record, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the custody routes. Reads and movements need the
// operations role or above; registering new assets is admin-only.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(ops chi.Router) {
		ops.Use(middleware.RequireRole(h.logger, id.RoleAdmin, id.RoleOperations))
		ops.Get("/custody/assets", h.handleList)
		ops.Get("/custody/assets/{assetID}", h.handleGet)
		ops.Post("/custody/assets/{assetID}/movements", h.handleRecordMovement)
		ops.Put("/custody/assets/{assetID}/movements/{movementID}", h.handleAmendMovement)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(h.logger, id.RoleAdmin))
		admin.Post("/custody/assets", h.handleRegister)
	})
}

type registerRequest struct {
	AssetID      string `json:"asset_id"`
	HolderName   string `json:"holder_name"`
	SerialNumber string `json:"serial_number"`
	IssuedAt     string `json:"issued_at"`
	ExpiresAt    string `json:"expires_at"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	assetID, err := id.ParseAssetID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}

	record, err := h.service.Register(ctx, custody.RegisterInput{
		AssetID:      assetID,
		HolderName:   req.HolderName,
		SerialNumber: req.SerialNumber,
		IssuedAt:     req.IssuedAt,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		h.logFailure(ctx, "asset registration failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !policy.CanViewAll(requestcontext.Role(ctx), policy.KindCustody) {
		shared.WriteError(w, policy.ErrForbidden)
		return
	}
	records, err := h.service.List(ctx)
	if err != nil {
		h.logFailure(ctx, "custody list failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"assets": records})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	record, err := h.service.Get(ctx, assetID)
	if err != nil {
		h.logFailure(ctx, "custody get failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

type movementRequest struct {
	MovementType string `json:"movement_type"`
	PersonName   string `json:"person_name"`
	Notes        string `json:"notes"`
}

func (h *Handler) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}

	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	record, err := h.service.RecordMovement(ctx, assetID, custody.MovementInput{
		Type:       custody.MovementType(req.MovementType),
		PersonName: req.PersonName,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logFailure(ctx, "movement record failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

// amendRequest uses pointers so "field absent" and "field set to empty" are
// distinguishable; clearing notes is a legitimate correction.
type amendRequest struct {
	MovementType *string `json:"movement_type"`
	PersonName   *string `json:"person_name"`
	Notes        *string `json:"notes"`
}

func (h *Handler) handleAmendMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid asset id"))
		return
	}
	movementID := id.MovementID(chi.URLParam(r, "movementID"))

	var req amendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	input := custody.AmendInput{}
	if req.MovementType != nil {
		input.Type = custody.MovementType(*req.MovementType)
	}
	if req.PersonName != nil {
		input.PersonName = *req.PersonName
	}
	if req.Notes != nil {
		input.Notes = *req.Notes
		input.NotesSet = true
	}

	record, err := h.service.AmendMovement(ctx, assetID, movementID, input)
	if err != nil {
		h.logFailure(ctx, "movement amend failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
}
