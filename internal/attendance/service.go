package attendance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"staffops/internal/attendance/metrics"
	"staffops/internal/audit"
	"staffops/internal/ledger"
	"staffops/internal/policy"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

// Punch transition failures, distinct so retries stay idempotent in effect:
// a replayed punch-in that already landed deterministically conflicts
// instead of double-creating state.
var (
	ErrAlreadyPunchedIn  = dErrors.New(dErrors.CodeConflict, "already punched in today")
	ErrAlreadyPunchedOut = dErrors.New(dErrors.CodeConflict, "already punched out today")
	ErrNoPunchIn         = dErrors.New(dErrors.CodeNotFound, "no punch-in found for today")
)

// Engine owns the punch state machine for one user-day. It holds no state
// between calls; the ledger store is the single source of truth.
type Engine struct {
	store   ledger.Store
	locks   *ledger.KeyLock
	shift   ShiftPolicy
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

func NewEngine(store ledger.Store, locks *ledger.KeyLock, shift ShiftPolicy, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if locks == nil {
		return nil, errors.New("key lock is required")
	}
	e := &Engine{
		store:  store,
		locks:  locks,
		shift:  shift,
		logger: slog.Default(),
		tracer: otel.Tracer("staffops/attendance"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Punch applies a punch-in or punch-out transition for the caller's current
// UTC day. The whole read-validate-write cycle holds the (user, day) key
// lock, so concurrent punches for the same day serialize and exactly one
// punch-in can win.
func (e *Engine) Punch(ctx context.Context, userID id.UserID, action Action) (*Record, error) {
	ctx, span := e.tracer.Start(ctx, "attendance.punch", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("action", string(action)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	day := ledger.Day(now)
	key := Key(userID, day)

	release := e.locks.Acquire(Collection + "/" + key)
	defer release()

	doc, err := e.store.GetByKey(ctx, Collection, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read attendance record")
	}

	switch action {
	case ActionPunchIn:
		if exists {
			e.reject(ctx, userID, key, "already_punched_in")
			return nil, ErrAlreadyPunchedIn
		}
		return e.punchIn(ctx, userID, day, key)
	case ActionPunchOut:
		if !exists {
			e.reject(ctx, userID, key, "no_punch_in")
			return nil, ErrNoPunchIn
		}
		record, err := decode(doc)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode attendance record")
		}
		return e.punchOut(ctx, record, key)
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown punch action %q", action)
	}
}

func (e *Engine) punchIn(ctx context.Context, userID id.UserID, day, key string) (*Record, error) {
	now := requestcontext.Now(ctx)
	isLate, lateBy := deriveLateness(now, e.shift)

	record := &Record{
		UserID:        userID,
		Day:           day,
		PunchIn:       now.UTC(),
		ExpectedStart: e.shift.ExpectedStart,
		ExpectedEnd:   e.shift.ExpectedEnd,
		GraceMinutes:  e.shift.GraceMinutes,
		IsLate:        isLate,
		LateByMinutes: lateBy,
		Status:        StatusPresent,
	}

	if err := e.store.Upsert(ctx, Collection, key, record.encode()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist punch-in")
	}

	e.metrics.RecordPunch(string(ActionPunchIn))
	if isLate {
		e.metrics.RecordLateArrival()
		e.logger.InfoContext(ctx, "late punch-in",
			"user_id", userID, "day", day, "late_by_minutes", lateBy)
	}
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionPunchIn, userID, key, "")
	}
	return record, nil
}

func (e *Engine) punchOut(ctx context.Context, record *Record, key string) (*Record, error) {
	if record.PunchOut != nil {
		e.reject(ctx, record.UserID, key, "already_punched_out")
		return nil, ErrAlreadyPunchedOut
	}

	now := requestcontext.Now(ctx).UTC()
	if now.Before(record.PunchIn) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "punch-out precedes punch-in")
	}

	duration := int(now.Sub(record.PunchIn).Minutes())
	overtime := 0
	if e.shift.StandardShiftMinutes > 0 && duration > e.shift.StandardShiftMinutes {
		overtime = duration - e.shift.StandardShiftMinutes
	}

	record.PunchOut = &now
	record.DurationMinutes = &duration
	record.OvertimeMinutes = overtime

	fields := map[string]any{
		"punch_out":        now.Format(time.RFC3339),
		"duration_minutes": duration,
		"overtime_minutes": overtime,
	}
	if err := e.store.UpdateFields(ctx, Collection, key, fields); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist punch-out")
	}

	e.metrics.RecordPunch(string(ActionPunchOut))
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionPunchOut, record.UserID, key, "")
	}
	return record, nil
}

func (e *Engine) reject(ctx context.Context, userID id.UserID, key, reason string) {
	e.metrics.RecordRejection(reason)
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.ActionPunchRejected, userID, key, reason)
	}
}

// Today returns the caller's record for the current UTC day, or nil when no
// punch-in has happened yet. Read-only.
func (e *Engine) Today(ctx context.Context, userID id.UserID) (*Record, error) {
	day := ledger.Day(requestcontext.Now(ctx))
	doc, err := e.store.GetByKey(ctx, Collection, Key(userID, day))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read attendance record")
	}
	record, err := decode(doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode attendance record")
	}
	return record, nil
}

// History returns records within the given scope, newest day first.
// Documents that fail to decode are skipped with a log line; history is a
// best-effort read surface, not a consistency check.
func (e *Engine) History(ctx context.Context, scope policy.Scope) ([]*Record, error) {
	ctx, span := e.tracer.Start(ctx, "attendance.history")
	defer span.End()

	field, prefix := "key", ""
	if scope.All {
		field, prefix = "day", ""
	} else {
		prefix = scope.UserID.String() + "|"
	}

	docs, err := e.store.QueryByPrefix(ctx, Collection, field, prefix)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query attendance records")
	}

	records := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		record, err := decode(doc)
		if err != nil {
			e.logger.WarnContext(ctx, "skipping undecodable attendance record", "error", err)
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Day != records[j].Day {
			return records[i].Day > records[j].Day
		}
		return records[i].UserID < records[j].UserID
	})
	return records, nil
}

// deriveLateness compares a punch-in instant against the configured shift
// start. Lateness is minutes past the expected start beyond the grace
// window: with a 09:00 start and 15 minutes grace, 09:15 is on time and
// 09:20 is 5 minutes late.
func deriveLateness(punchIn time.Time, shift ShiftPolicy) (bool, int) {
	expected := ledger.AtClock(punchIn, shift.ExpectedStart)
	if expected.IsZero() {
		return false, 0
	}
	minutesPast := int(punchIn.UTC().Sub(expected).Minutes())
	if minutesPast > shift.GraceMinutes {
		return true, minutesPast - shift.GraceMinutes
	}
	return false, 0
}
