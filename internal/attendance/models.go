// Package attendance owns the daily punch ledger: one record per user per
// UTC calendar day, created on punch-in and completed once on punch-out,
// with duration, overtime and lateness derived rather than client-supplied.
package attendance

import (
	"fmt"
	"time"

	"staffops/internal/ledger"
	id "staffops/pkg/domain"
)

// Collection is the ledger collection attendance records live in.
const Collection = "attendance"

// Action is the punch transition requested by the caller.
type Action string

const (
	ActionPunchIn  Action = "punch_in"
	ActionPunchOut Action = "punch_out"
)

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionPunchIn, ActionPunchOut:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown punch action %q", s)
	}
}

// Status labels a completed state of the day record.
type Status string

const StatusPresent Status = "present"

// ShiftPolicy configures lateness and overtime derivation. The zero value
// disables both.
type ShiftPolicy struct {
	// ExpectedStart is the shift start as "HH:MM" UTC; empty disables
	// lateness tracking.
	ExpectedStart string
	// ExpectedEnd is informational, recorded on each day record.
	ExpectedEnd string
	// GraceMinutes is how far past ExpectedStart a punch-in may land
	// before it counts as late.
	GraceMinutes int
	// StandardShiftMinutes is the shift length beyond which worked time
	// counts as overtime; 0 disables overtime.
	StandardShiftMinutes int
}

// DefaultShiftPolicy matches the house rules: 9-to-6 with a 15 minute grace
// window and an 8 hour standard shift.
func DefaultShiftPolicy() ShiftPolicy {
	return ShiftPolicy{
		ExpectedStart:        "09:00",
		ExpectedEnd:          "18:00",
		GraceMinutes:         15,
		StandardShiftMinutes: 480,
	}
}

// Record is one user-day attendance entry.
//
// Invariants: PunchOut, when set, is never before PunchIn;
// DurationMinutes is set if and only if PunchOut is set and equals the
// whole minutes between the two instants.
type Record struct {
	UserID          id.UserID  `json:"user_id"`
	Day             string     `json:"day"`
	PunchIn         time.Time  `json:"punch_in"`
	PunchOut        *time.Time `json:"punch_out,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	OvertimeMinutes int        `json:"overtime_minutes"`
	ExpectedStart   string     `json:"expected_start,omitempty"`
	ExpectedEnd     string     `json:"expected_end,omitempty"`
	GraceMinutes    int        `json:"grace_minutes"`
	IsLate          bool       `json:"is_late"`
	LateByMinutes   int        `json:"late_by_minutes"`
	Status          Status     `json:"status"`
}

// Key builds the ledger key for a user-day pair. The "|" separator is
// reserved in user IDs, so keys cannot collide across users.
func Key(userID id.UserID, day string) string {
	return userID.String() + "|" + day
}

// Key returns the record's own ledger key.
func (r *Record) Key() string { return Key(r.UserID, r.Day) }

// encode turns a record into its stored document. The composite key is
// persisted redundantly so prefix scans by user ("emp-1|") cannot match a
// different user whose ID shares a prefix.
func (r *Record) encode() ledger.Document {
	doc := ledger.Document{
		"key":              r.Key(),
		"user_id":          r.UserID.String(),
		"day":              r.Day,
		"punch_in":         r.PunchIn.UTC().Format(time.RFC3339),
		"overtime_minutes": r.OvertimeMinutes,
		"grace_minutes":    r.GraceMinutes,
		"is_late":          r.IsLate,
		"late_by_minutes":  r.LateByMinutes,
		"status":           string(r.Status),
	}
	if r.ExpectedStart != "" {
		doc["expected_start"] = r.ExpectedStart
	}
	if r.ExpectedEnd != "" {
		doc["expected_end"] = r.ExpectedEnd
	}
	if r.PunchOut != nil {
		doc["punch_out"] = r.PunchOut.UTC().Format(time.RFC3339)
	}
	if r.DurationMinutes != nil {
		doc["duration_minutes"] = *r.DurationMinutes
	}
	return doc
}

// decode rebuilds a record from its stored document. Decoding is strict on
// identity (user, day, punch-in must be present and well-formed) and
// tolerant on derived numerics: a missing or malformed duration decodes as
// absent so one bad row can never abort a report.
func decode(doc ledger.Document) (*Record, error) {
	userID, err := id.ParseUserID(docString(doc, "user_id"))
	if err != nil {
		return nil, fmt.Errorf("attendance document: %w", err)
	}
	day, err := ledger.ParseDay(docString(doc, "day"))
	if err != nil {
		return nil, fmt.Errorf("attendance document: %w", err)
	}
	punchIn, err := time.Parse(time.RFC3339, docString(doc, "punch_in"))
	if err != nil {
		return nil, fmt.Errorf("attendance document %s: bad punch_in: %w", Key(userID, day), err)
	}

	r := &Record{
		UserID:          userID,
		Day:             day,
		PunchIn:         punchIn,
		OvertimeMinutes: docInt(doc, "overtime_minutes", 0),
		ExpectedStart:   docString(doc, "expected_start"),
		ExpectedEnd:     docString(doc, "expected_end"),
		GraceMinutes:    docInt(doc, "grace_minutes", 0),
		IsLate:          docBool(doc, "is_late"),
		LateByMinutes:   docInt(doc, "late_by_minutes", 0),
		Status:          Status(docString(doc, "status")),
	}
	if raw := docString(doc, "punch_out"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			r.PunchOut = &t
		}
	}
	if v, ok := docIntOK(doc, "duration_minutes"); ok {
		r.DurationMinutes = &v
	}
	return r, nil
}

func docString(doc ledger.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

func docBool(doc ledger.Document, field string) bool {
	b, _ := doc[field].(bool)
	return b
}

// docIntOK reads a numeric field that may arrive as int (in-memory store)
// or float64 (JSON round trip). Anything else reports absent.
func docIntOK(doc ledger.Document, field string) (int, bool) {
	switch v := doc[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func docInt(doc ledger.Document, field string, fallback int) int {
	if v, ok := docIntOK(doc, field); ok {
		return v
	}
	return fallback
}
