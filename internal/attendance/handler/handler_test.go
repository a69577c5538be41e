package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"staffops/internal/attendance"
	"staffops/internal/directory"
	"staffops/internal/ledger"
	id "staffops/pkg/domain"
	"staffops/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	engine *attendance.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

var testTime = time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)

func (s *HandlerSuite) SetupTest() {
	store := ledger.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var err error
	s.engine, err = attendance.NewEngine(store, ledger.NewKeyLock(), attendance.DefaultShiftPolicy(),
		attendance.WithLogger(logger))
	s.Require().NoError(err)

	dir := directory.NewInMemory(
		directory.Profile{UserID: "emp-1", Name: "Asha Rao", Role: id.RoleStaff},
	)
	reporter := attendance.NewAggregator(store, dir, logger)

	s.router = chi.NewRouter()
	New(s.engine, reporter, logger).Register(s.router)
}

// as builds an authenticated request with a pinned clock.
func (s *HandlerSuite) as(userID id.UserID, role id.Role, req *http.Request) *http.Request {
	return testutil.WithTime(testutil.WithCaller(req, userID, role), testTime)
}

func (s *HandlerSuite) TestPunchFlow() {
	s.Run("punch in", func() {
		req := s.as("emp-1", id.RoleStaff,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_in"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		record := testutil.UnmarshalResponse[attendance.Record](s.T(), rr)
		s.Equal("2026-08-27", record.Day)
		s.Nil(record.PunchOut)
	})

	s.Run("double punch in conflicts", func() {
		req := s.as("emp-1", id.RoleStaff,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_in"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("punch out", func() {
		req := testutil.WithTime(
			testutil.WithCaller(
				testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_out"}),
				"emp-1", id.RoleStaff),
			testTime.Add(9*time.Hour))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		record := testutil.UnmarshalResponse[attendance.Record](s.T(), rr)
		s.Require().NotNil(record.DurationMinutes)
		s.Equal(540, *record.DurationMinutes)
	})
}

func (s *HandlerSuite) TestPunchValidation() {
	s.Run("bad action", func() {
		req := s.as("emp-1", id.RoleStaff,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "sideways"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("malformed body", func() {
		req := s.as("emp-1", id.RoleStaff,
			testutil.NewRequestWithBody(s.T(), http.MethodPost, "/attendance/punch", "{not json"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("punch out without punch in", func() {
		req := s.as("emp-9", id.RoleStaff,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_out"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestToday() {
	s.Run("empty before any punch", func() {
		req := s.as("emp-1", id.RoleStaff, testutil.NewRequest(s.T(), http.MethodGet, "/attendance/today"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "record", nil)
	})

	s.Run("returns the open record", func() {
		punch := s.as("emp-1", id.RoleStaff,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_in"}))
		testutil.DoRequest(s.router, punch)

		req := s.as("emp-1", id.RoleStaff, testutil.NewRequest(s.T(), http.MethodGet, "/attendance/today"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONHasKey(s.T(), rr, "record")
	})
}

func (s *HandlerSuite) TestHistoryScope() {
	punch := s.as("emp-1", id.RoleStaff,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_in"}))
	testutil.DoRequest(s.router, punch)

	s.Run("staff may not read another user's history", func() {
		req := s.as("emp-2", id.RoleStaff,
			testutil.NewRequest(s.T(), http.MethodGet, "/attendance/history?user_id=emp-1"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("admin may", func() {
		req := s.as("admin-1", id.RoleAdmin,
			testutil.NewRequest(s.T(), http.MethodGet, "/attendance/history?user_id=emp-1"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("own history needs no parameter", func() {
		req := s.as("emp-1", id.RoleStaff,
			testutil.NewRequest(s.T(), http.MethodGet, "/attendance/history"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})
}

func (s *HandlerSuite) TestSummary() {
	punch := s.as("emp-1", id.RoleStaff,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/attendance/punch", map[string]string{"action": "punch_in"}))
	testutil.DoRequest(s.router, punch)

	req := s.as("emp-1", id.RoleStaff, testutil.NewRequest(s.T(), http.MethodGet, "/attendance/summary"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	summary := testutil.UnmarshalResponse[attendance.Summary](s.T(), rr)
	s.Equal(1, summary.DaysPresent)
	s.Equal("2026-08", summary.CurrentMonth)
}

func (s *HandlerSuite) TestStaffReportRequiresAdmin() {
	s.Run("staff forbidden", func() {
		req := s.as("emp-1", id.RoleStaff, testutil.NewRequest(s.T(), http.MethodGet, "/attendance/report"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("operations forbidden", func() {
		req := s.as("ops-1", id.RoleOperations, testutil.NewRequest(s.T(), http.MethodGet, "/attendance/report"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("admin allowed", func() {
		req := s.as("admin-1", id.RoleAdmin,
			testutil.NewRequest(s.T(), http.MethodGet, "/attendance/report?month=2026-08"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		report := testutil.UnmarshalResponse[attendance.Report](s.T(), rr)
		s.Equal("2026-08", report.Month)
	})

	s.Run("bad month rejected", func() {
		req := s.as("admin-1", id.RoleAdmin,
			testutil.NewRequest(s.T(), http.MethodGet, "/attendance/report?month=August"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}
