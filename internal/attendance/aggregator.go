package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"staffops/internal/directory"
	"staffops/internal/ledger"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

// MonthSummary is one month's fold of a user's records.
type MonthSummary struct {
	Month        string `json:"month"`
	TotalMinutes int    `json:"total_minutes"`
	DaysPresent  int    `json:"days_present"`
	TotalHours   string `json:"total_hours"`
}

// Summary is a user's complete monthly breakdown plus grand totals.
type Summary struct {
	UserID       id.UserID      `json:"user_id"`
	Months       []MonthSummary `json:"months"`
	TotalMinutes int            `json:"total_minutes"`
	DaysPresent  int            `json:"days_present"`
	TotalHours   string         `json:"total_hours"`
	CurrentMonth string         `json:"current_month"`
}

// ReportRow is one user's slice of the org-wide monthly report.
type ReportRow struct {
	UserID          id.UserID `json:"user_id"`
	Name            string    `json:"name"`
	Role            id.Role   `json:"role"`
	TotalMinutes    int       `json:"total_minutes"`
	DaysPresent     int       `json:"days_present"`
	TotalHours      string    `json:"total_hours"`
	AvgHoursPerDay  float64   `json:"avg_hours_per_day"`
	Records         []*Record `json:"records"`
}

// Report is the org-wide fold for one month, rows sorted by total minutes
// descending.
type Report struct {
	Month string      `json:"month"`
	Rows  []ReportRow `json:"rows"`
}

// Aggregator derives monthly summaries by folding over attendance records.
// Folds never fail on a single bad row: a record with a missing duration
// contributes zero minutes but still counts as a day present, because an
// audit report must return best-effort totals rather than abort.
type Aggregator struct {
	store  ledger.Store
	dir    directory.Directory
	logger *slog.Logger
	tracer trace.Tracer
}

func NewAggregator(store ledger.Store, dir directory.Directory, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		dir:    dir,
		logger: logger,
		tracer: otel.Tracer("staffops/attendance"),
	}
}

// Summary folds all of a user's records grouped by calendar month.
func (a *Aggregator) Summary(ctx context.Context, userID id.UserID) (*Summary, error) {
	ctx, span := a.tracer.Start(ctx, "attendance.summary")
	defer span.End()

	docs, err := a.store.QueryByPrefix(ctx, Collection, "key", userID.String()+"|")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query attendance records")
	}

	byMonth := make(map[string]*MonthSummary)
	var monthOrder []string
	summary := &Summary{
		UserID:       userID,
		CurrentMonth: ledger.Month(requestcontext.Now(ctx)),
	}

	for _, doc := range docs {
		record, err := decode(doc)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping undecodable attendance record", "error", err)
			continue
		}
		month := ledger.MonthOfDay(record.Day)
		ms, ok := byMonth[month]
		if !ok {
			ms = &MonthSummary{Month: month}
			byMonth[month] = ms
			monthOrder = append(monthOrder, month)
		}
		ms.DaysPresent++
		summary.DaysPresent++
		if record.DurationMinutes != nil {
			ms.TotalMinutes += *record.DurationMinutes
			summary.TotalMinutes += *record.DurationMinutes
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(monthOrder)))
	summary.Months = make([]MonthSummary, 0, len(monthOrder))
	for _, month := range monthOrder {
		ms := byMonth[month]
		ms.TotalHours = formatHours(ms.TotalMinutes)
		summary.Months = append(summary.Months, *ms)
	}
	summary.TotalHours = formatHours(summary.TotalMinutes)
	return summary, nil
}

// directoryLookupConcurrency bounds the fan-out against the user directory.
const directoryLookupConcurrency = 8

// StaffReport folds every user's records for one month. The month defaults
// to the current one when empty. Callers are responsible for the admin
// check; the aggregator only reads.
func (a *Aggregator) StaffReport(ctx context.Context, month string) (*Report, error) {
	ctx, span := a.tracer.Start(ctx, "attendance.staff_report")
	defer span.End()

	if month == "" {
		month = ledger.Month(requestcontext.Now(ctx))
	} else {
		parsed, err := ledger.ParseMonth(month)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid report month")
		}
		month = parsed
	}

	docs, err := a.store.QueryByPrefix(ctx, Collection, "day", month)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query attendance records")
	}

	records := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		record, err := decode(doc)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping undecodable attendance record", "error", err)
			continue
		}
		records = append(records, record)
	}
	// Deterministic encounter order for grouping and for ties in the
	// final stable sort.
	sort.Slice(records, func(i, j int) bool {
		if records[i].UserID != records[j].UserID {
			return records[i].UserID < records[j].UserID
		}
		return records[i].Day < records[j].Day
	})

	byUser := make(map[id.UserID]*ReportRow)
	var userOrder []id.UserID
	for _, record := range records {
		row, ok := byUser[record.UserID]
		if !ok {
			row = &ReportRow{UserID: record.UserID}
			byUser[record.UserID] = row
			userOrder = append(userOrder, record.UserID)
		}
		row.DaysPresent++
		if record.DurationMinutes != nil {
			row.TotalMinutes += *record.DurationMinutes
		}
		row.Records = append(row.Records, record)
	}

	if err := a.joinDirectory(ctx, byUser, userOrder); err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(userOrder))
	for _, userID := range userOrder {
		row := byUser[userID]
		row.TotalHours = formatHours(row.TotalMinutes)
		if row.DaysPresent > 0 {
			row.AvgHoursPerDay = round1(float64(row.TotalMinutes) / float64(row.DaysPresent) / 60)
		}
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalMinutes > rows[j].TotalMinutes
	})

	return &Report{Month: month, Rows: rows}, nil
}

// joinDirectory fills display names and roles, substituting a placeholder
// for users the directory no longer knows (departed staff keep appearing in
// historical reports).
func (a *Aggregator) joinDirectory(ctx context.Context, byUser map[id.UserID]*ReportRow, userOrder []id.UserID) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(directoryLookupConcurrency)
	for _, userID := range userOrder {
		row := byUser[userID]
		g.Go(func() error {
			profile, err := a.dir.Lookup(gctx, userID)
			if err != nil {
				row.Name = fmt.Sprintf("Unknown (%s)", userID)
				row.Role = id.RoleStaff
				return nil
			}
			row.Name = profile.Name
			row.Role = profile.Role
			return nil
		})
	}
	return g.Wait()
}

func formatHours(totalMinutes int) string {
	return fmt.Sprintf("%dh %dm", totalMinutes/60, totalMinutes%60)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
