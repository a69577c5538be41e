// Package audit captures structured events for every ledger mutation. It is
// append-only and transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	id "staffops/pkg/domain"
)

// Category classifies audit events for retention and routing.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance:
	// custody of client credentials changing hands.
	CategoryCompliance Category = "compliance"
	// CategoryOperations covers routine activity useful for debugging and
	// operational visibility.
	CategoryOperations Category = "operations"
)

// Action names the audited operation.
type Action string

const (
	ActionPunchIn         Action = "attendance_punch_in"
	ActionPunchOut        Action = "attendance_punch_out"
	ActionPunchRejected   Action = "attendance_punch_rejected"
	ActionAssetRegistered Action = "custody_asset_registered"
	ActionMovementRecord  Action = "custody_movement_recorded"
	ActionMovementAmend   Action = "custody_movement_amended"
)

// actionCategories maps each action to its category. Custody actions track
// physical handover of client credentials and need compliance retention.
var actionCategories = map[Action]Category{
	ActionPunchIn:         CategoryOperations,
	ActionPunchOut:        CategoryOperations,
	ActionPunchRejected:   CategoryOperations,
	ActionAssetRegistered: CategoryCompliance,
	ActionMovementRecord:  CategoryCompliance,
	ActionMovementAmend:   CategoryCompliance,
}

// CategoryOf returns the category for an action, defaulting to operations.
func CategoryOf(action Action) Category {
	if c, ok := actionCategories[action]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Category  Category  `json:"category"`
	// UserID is the acting caller.
	UserID id.UserID `json:"user_id,omitempty"`
	// Subject identifies the entity acted on (attendance key or asset id).
	Subject string `json:"subject,omitempty"`
	// Reason carries rejection details for failed operations.
	Reason string `json:"reason,omitempty"`
	// Device is the human-readable device description from the request.
	Device string `json:"device,omitempty"`
	// RequestID correlates the event with the HTTP request.
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
