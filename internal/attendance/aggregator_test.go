package attendance

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"staffops/internal/directory"
	"staffops/internal/ledger"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

type AggregatorSuite struct {
	suite.Suite
	store *ledger.InMemoryStore
	dir   *directory.InMemoryDirectory
	agg   *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.store = ledger.NewInMemoryStore()
	s.dir = directory.NewInMemory(
		directory.Profile{UserID: "emp-1", Name: "Asha Rao", Role: id.RoleStaff},
		directory.Profile{UserID: "emp-2", Name: "Dev Mehta", Role: id.RoleOperations},
	)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.agg = NewAggregator(s.store, s.dir, logger)
}

// seed persists a record; duration == nil models an open day (no punch-out).
func (s *AggregatorSuite) seed(userID id.UserID, day string, duration *int) {
	punchIn, err := time.Parse("2006-01-02", day)
	s.Require().NoError(err)
	record := &Record{
		UserID:  userID,
		Day:     day,
		PunchIn: punchIn.Add(9 * time.Hour),
		Status:  StatusPresent,
	}
	if duration != nil {
		out := record.PunchIn.Add(time.Duration(*duration) * time.Minute)
		record.PunchOut = &out
		record.DurationMinutes = duration
	}
	s.Require().NoError(s.store.Upsert(context.Background(), Collection, record.Key(), record.encode()))
}

func minutes(v int) *int { return &v }

func (s *AggregatorSuite) TestSummary() {
	// Two May records (one still open) and one June record.
	s.seed("emp-1", "2026-05-04", minutes(480))
	s.seed("emp-1", "2026-05-05", nil)
	s.seed("emp-1", "2026-06-01", minutes(60))
	// Another user's data must not leak in.
	s.seed("emp-2", "2026-05-04", minutes(600))

	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC))
	summary, err := s.agg.Summary(ctx, "emp-1")
	s.Require().NoError(err)

	s.Equal("2026-06", summary.CurrentMonth)
	s.Require().Len(summary.Months, 2)

	s.Run("months are newest first", func() {
		s.Equal("2026-06", summary.Months[0].Month)
		s.Equal("2026-05", summary.Months[1].Month)
	})

	s.Run("open day counts as present with zero minutes", func() {
		may := summary.Months[1]
		s.Equal(480, may.TotalMinutes)
		s.Equal(2, may.DaysPresent)
		s.Equal("8h 0m", may.TotalHours)
	})

	s.Run("june", func() {
		june := summary.Months[0]
		s.Equal(60, june.TotalMinutes)
		s.Equal(1, june.DaysPresent)
		s.Equal("1h 0m", june.TotalHours)
	})

	s.Run("grand totals", func() {
		s.Equal(540, summary.TotalMinutes)
		s.Equal(3, summary.DaysPresent)
		s.Equal("9h 0m", summary.TotalHours)
	})
}

func (s *AggregatorSuite) TestSummaryEmpty() {
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))
	summary, err := s.agg.Summary(ctx, "emp-none")
	s.Require().NoError(err)
	s.Empty(summary.Months)
	s.Zero(summary.TotalMinutes)
	s.Equal("0h 0m", summary.TotalHours)
	s.Equal("2026-08", summary.CurrentMonth)
}

func (s *AggregatorSuite) TestStaffReport() {
	s.seed("emp-1", "2026-05-04", minutes(480))
	s.seed("emp-1", "2026-05-05", nil)
	s.seed("emp-2", "2026-05-04", minutes(500))
	s.seed("emp-2", "2026-05-06", minutes(430))
	// A user the directory no longer knows.
	s.seed("emp-gone", "2026-05-07", minutes(120))
	// Outside the month: excluded entirely.
	s.seed("emp-1", "2026-06-01", minutes(600))

	report, err := s.agg.StaffReport(context.Background(), "2026-05")
	s.Require().NoError(err)
	s.Equal("2026-05", report.Month)
	s.Require().Len(report.Rows, 3)

	s.Run("sorted by total minutes descending", func() {
		s.Equal(id.UserID("emp-2"), report.Rows[0].UserID)
		s.Equal(id.UserID("emp-1"), report.Rows[1].UserID)
		s.Equal(id.UserID("emp-gone"), report.Rows[2].UserID)
	})

	s.Run("totals treat missing duration as zero", func() {
		row := report.Rows[1]
		s.Equal(480, row.TotalMinutes)
		s.Equal(2, row.DaysPresent)
		s.Equal("8h 0m", row.TotalHours)
		s.Len(row.Records, 2)
	})

	s.Run("average hours rounded to one decimal", func() {
		row := report.Rows[0]
		s.Equal(930, row.TotalMinutes)
		s.Equal(2, row.DaysPresent)
		// 930/2/60 = 7.75 -> 7.8
		s.InDelta(7.8, row.AvgHoursPerDay, 0.001)
	})

	s.Run("directory join", func() {
		s.Equal("Dev Mehta", report.Rows[0].Name)
		s.Equal(id.RoleOperations, report.Rows[0].Role)
	})

	s.Run("unknown users get a placeholder, not an error", func() {
		row := report.Rows[2]
		s.Equal("Unknown (emp-gone)", row.Name)
		s.Equal(id.RoleStaff, row.Role)
	})
}

func (s *AggregatorSuite) TestStaffReportDefaultsToCurrentMonth() {
	s.seed("emp-1", "2026-08-20", minutes(450))
	s.seed("emp-1", "2026-07-20", minutes(450))

	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))
	report, err := s.agg.StaffReport(ctx, "")
	s.Require().NoError(err)
	s.Equal("2026-08", report.Month)
	s.Require().Len(report.Rows, 1)
	s.Equal(1, report.Rows[0].DaysPresent)
}

func (s *AggregatorSuite) TestStaffReportRejectsBadMonth() {
	_, err := s.agg.StaffReport(context.Background(), "May 2026")
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *AggregatorSuite) TestStaffReportOmitsIdleUsers() {
	s.seed("emp-1", "2026-05-04", minutes(480))

	report, err := s.agg.StaffReport(context.Background(), "2026-05")
	s.Require().NoError(err)
	s.Len(report.Rows, 1, "users with no records in the month are omitted, not zero-filled")
}

func (s *AggregatorSuite) TestStableOrderOnTies() {
	s.seed("emp-1", "2026-05-04", minutes(480))
	s.seed("emp-2", "2026-05-04", minutes(480))

	report, err := s.agg.StaffReport(context.Background(), "2026-05")
	s.Require().NoError(err)
	s.Require().Len(report.Rows, 2)
	// Equal totals keep encounter order (user id ascending here).
	s.Equal(id.UserID("emp-1"), report.Rows[0].UserID)
	s.Equal(id.UserID("emp-2"), report.Rows[1].UserID)
}

func (s *AggregatorSuite) TestFormatHours() {
	s.Equal("0h 0m", formatHours(0))
	s.Equal("8h 0m", formatHours(480))
	s.Equal("7h 45m", formatHours(465))
}
