package custody

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"staffops/internal/audit"
	"staffops/internal/custody/metrics"
	"staffops/internal/ledger"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

var (
	ErrAssetExists      = dErrors.New(dErrors.CodeConflict, "asset already registered")
	ErrAssetNotFound    = dErrors.New(dErrors.CodeNotFound, "asset not found")
	ErrMovementNotFound = dErrors.New(dErrors.CodeNotFound, "movement entry not found")
)

// RegisterInput describes a new credential taken into custody.
type RegisterInput struct {
	AssetID      id.AssetID
	HolderName   string
	SerialNumber string
	IssuedAt     string
	ExpiresAt    string
}

// MovementInput describes a handover to append to an asset's log.
type MovementInput struct {
	Type       MovementType
	PersonName string
	Notes      string
}

// AmendInput carries the corrections for one movement entry. Zero-valued
// fields are left untouched; Notes is only written when NotesSet is true so
// callers can distinguish "clear the notes" from "leave them alone".
type AmendInput struct {
	Type       MovementType
	PersonName string
	Notes      string
	NotesSet   bool
}

// Engine owns the custody movement log. Every mutation rewrites the whole
// record under the asset's key lock and recomputes the status projection, so
// the stored document can never drift from its own log.
type Engine struct {
	store   ledger.Store
	locks   *ledger.KeyLock
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type EngineOption func(*Engine)

func WithAuditor(p *audit.Publisher) EngineOption {
	return func(e *Engine) { e.auditor = p }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(store ledger.Store, locks *ledger.KeyLock, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if locks == nil {
		return nil, errors.New("key lock is required")
	}
	e := &Engine{
		store:  store,
		locks:  locks,
		logger: slog.Default(),
		tracer: otel.Tracer("staffops/custody"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Register takes a new credential into custody with an empty movement log,
// which projects to IN / with_company.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*Record, error) {
	ctx, span := e.tracer.Start(ctx, "custody.register", trace.WithAttributes(
		attribute.String("asset_id", input.AssetID.String()),
	))
	defer span.End()

	if input.AssetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset id is required")
	}
	if strings.TrimSpace(input.HolderName) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder name is required")
	}

	release := e.locks.Acquire(Collection + "/" + input.AssetID.String())
	defer release()

	if _, err := e.store.GetByKey(ctx, Collection, input.AssetID.String()); err == nil {
		return nil, ErrAssetExists
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read custody record")
	}

	record := &Record{
		ID:           input.AssetID,
		HolderName:   strings.TrimSpace(input.HolderName),
		SerialNumber: strings.TrimSpace(input.SerialNumber),
		IssuedAt:     strings.TrimSpace(input.IssuedAt),
		ExpiresAt:    strings.TrimSpace(input.ExpiresAt),
		MovementLog:  []MovementEntry{},
	}
	record.applyProjection()

	if err := e.store.Upsert(ctx, Collection, record.ID.String(), record.encode()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist custody record")
	}

	e.metrics.RecordRegistration()
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionAssetRegistered, requestcontext.UserID(ctx), record.ID.String(), "")
	}
	return record, nil
}

// Get returns one custody record by asset id.
func (e *Engine) Get(ctx context.Context, assetID id.AssetID) (*Record, error) {
	doc, err := e.store.GetByKey(ctx, Collection, assetID.String())
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read custody record")
	}
	record, err := decode(doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode custody record")
	}
	return record, nil
}

// List returns every custody record sorted by asset id. The custody ledger
// is a small registry (hundreds of credentials, not millions), so a full
// scan per listing is acceptable.
func (e *Engine) List(ctx context.Context) ([]*Record, error) {
	ctx, span := e.tracer.Start(ctx, "custody.list")
	defer span.End()

	docs, err := e.store.QueryByPrefix(ctx, Collection, "id", "")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query custody records")
	}
	records := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		record, err := decode(doc)
		if err != nil {
			e.logger.WarnContext(ctx, "skipping undecodable custody record", "error", err)
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// RecordMovement appends a handover to the asset's log and recomputes the
// projection. Appends are serialized per asset, so concurrent movements
// cannot lose entries or collide on position.
func (e *Engine) RecordMovement(ctx context.Context, assetID id.AssetID, input MovementInput) (*Record, error) {
	ctx, span := e.tracer.Start(ctx, "custody.record_movement", trace.WithAttributes(
		attribute.String("asset_id", assetID.String()),
		attribute.String("movement_type", string(input.Type)),
	))
	defer span.End()

	if _, err := ParseMovementType(string(input.Type)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid movement")
	}
	if strings.TrimSpace(input.PersonName) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "person name is required")
	}

	release := e.locks.Acquire(Collection + "/" + assetID.String())
	defer release()

	record, err := e.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}

	entry := MovementEntry{
		ID:         id.MovementID(uuid.NewString()),
		Type:       input.Type,
		PersonName: strings.TrimSpace(input.PersonName),
		Timestamp:  requestcontext.Now(ctx).UTC(),
		Notes:      strings.TrimSpace(input.Notes),
		RecordedBy: requestcontext.UserID(ctx),
	}
	record.MovementLog = append(record.MovementLog, entry)
	record.applyProjection()

	if err := e.store.Upsert(ctx, Collection, assetID.String(), record.encode()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist custody movement")
	}

	e.metrics.RecordMovement(string(input.Type))
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionMovementRecord, requestcontext.UserID(ctx), assetID.String(), "")
	}
	return record, nil
}

// AmendMovement corrects one existing log entry in place. The entry keeps
// its position and timestamp; only the correctable fields change, plus an
// editor stamp. The projection is recomputed from the tail afterwards, so
// amending a non-tail entry never changes the current status.
func (e *Engine) AmendMovement(ctx context.Context, assetID id.AssetID, movementID id.MovementID, input AmendInput) (*Record, error) {
	ctx, span := e.tracer.Start(ctx, "custody.amend_movement", trace.WithAttributes(
		attribute.String("asset_id", assetID.String()),
		attribute.String("movement_id", movementID.String()),
	))
	defer span.End()

	if input.Type != "" {
		if _, err := ParseMovementType(string(input.Type)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid movement")
		}
	}

	release := e.locks.Acquire(Collection + "/" + assetID.String())
	defer release()

	record, err := e.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range record.MovementLog {
		if record.MovementLog[i].ID == movementID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrMovementNotFound
	}

	entry := &record.MovementLog[idx]
	if input.Type != "" {
		entry.Type = input.Type
	}
	if name := strings.TrimSpace(input.PersonName); name != "" {
		entry.PersonName = name
	}
	if input.NotesSet {
		entry.Notes = strings.TrimSpace(input.Notes)
	}
	entry.EditedBy = requestcontext.UserID(ctx)
	editedAt := requestcontext.Now(ctx).UTC()
	entry.EditedAt = &editedAt

	record.applyProjection()

	if err := e.store.Upsert(ctx, Collection, assetID.String(), record.encode()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist custody amendment")
	}

	e.metrics.RecordAmendment()
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionMovementAmend, requestcontext.UserID(ctx), assetID.String(), "")
	}
	return record, nil
}
