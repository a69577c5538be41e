// Package custody owns the movement ledger for client credentials held in
// company custody (signing certificates and similar physical/digital
// assets). Each record carries an append-and-amend movement log;
// current status and location are projections of the log tail, recomputed
// on every mutation and never hand-set.
package custody

import (
	"fmt"
	"time"

	"staffops/internal/ledger"
	id "staffops/pkg/domain"
)

// Collection is the ledger collection custody records live in.
const Collection = "custody"

// MovementType is the direction of a custody handover.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// ParseMovementType validates a wire-level movement type.
func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(s) {
	case MovementIn, MovementOut:
		return MovementType(s), nil
	default:
		return "", fmt.Errorf("unknown movement type %q", s)
	}
}

// Location labels where the asset currently is.
type Location string

const (
	LocationWithCompany Location = "with_company"
	LocationWithClient  Location = "with_client"
)

// MovementEntry is one element of a record's movement log. Entries are
// append-only for creation; existing entries may be amended in place by ID
// but never reordered or removed.
type MovementEntry struct {
	ID         id.MovementID `json:"id"`
	Type       MovementType  `json:"movement_type"`
	PersonName string        `json:"person_name"`
	Timestamp  time.Time     `json:"timestamp"`
	Notes      string        `json:"notes,omitempty"`
	RecordedBy id.UserID     `json:"recorded_by"`
	EditedBy   id.UserID     `json:"edited_by,omitempty"`
	EditedAt   *time.Time    `json:"edited_at,omitempty"`
}

// Record is one credential in custody.
type Record struct {
	ID           id.AssetID      `json:"id"`
	HolderName   string          `json:"holder_name"`
	SerialNumber string          `json:"serial_number,omitempty"`
	IssuedAt     string          `json:"issued_at,omitempty"`
	ExpiresAt    string          `json:"expires_at,omitempty"`
	// CurrentStatus and CurrentLocation mirror deriveStatus(MovementLog).
	CurrentStatus   MovementType    `json:"current_status"`
	CurrentLocation Location        `json:"current_location"`
	MovementLog     []MovementEntry `json:"movement_log"`
}

// deriveStatus is the single projection from a movement log to the derived
// status and location. Empty log means the asset is with the company.
func deriveStatus(log []MovementEntry) (MovementType, Location) {
	if len(log) == 0 {
		return MovementIn, LocationWithCompany
	}
	last := log[len(log)-1]
	if last.Type == MovementOut {
		return MovementOut, LocationWithClient
	}
	return MovementIn, LocationWithCompany
}

// applyProjection recomputes the derived fields from the log.
func (r *Record) applyProjection() {
	r.CurrentStatus, r.CurrentLocation = deriveStatus(r.MovementLog)
}

// encode turns a record into its stored document.
func (r *Record) encode() ledger.Document {
	log := make([]any, 0, len(r.MovementLog))
	for i := range r.MovementLog {
		log = append(log, encodeEntry(&r.MovementLog[i]))
	}
	doc := ledger.Document{
		"id":               r.ID.String(),
		"holder_name":      r.HolderName,
		"current_status":   string(r.CurrentStatus),
		"current_location": string(r.CurrentLocation),
		"movement_log":     log,
	}
	if r.SerialNumber != "" {
		doc["serial_number"] = r.SerialNumber
	}
	if r.IssuedAt != "" {
		doc["issued_at"] = r.IssuedAt
	}
	if r.ExpiresAt != "" {
		doc["expires_at"] = r.ExpiresAt
	}
	return doc
}

func encodeEntry(e *MovementEntry) ledger.Document {
	doc := ledger.Document{
		"id":            e.ID.String(),
		"movement_type": string(e.Type),
		"person_name":   e.PersonName,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339),
		"recorded_by":   e.RecordedBy.String(),
	}
	if e.Notes != "" {
		doc["notes"] = e.Notes
	}
	if !e.EditedBy.IsNil() {
		doc["edited_by"] = e.EditedBy.String()
	}
	if e.EditedAt != nil {
		doc["edited_at"] = e.EditedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

// decode rebuilds a record from its stored document. Identity must be
// present; log entries with unknown shapes are rejected rather than
// silently dropped, because the log is the source of truth for the
// projection.
func decode(doc ledger.Document) (*Record, error) {
	assetID, err := id.ParseAssetID(docString(doc, "id"))
	if err != nil {
		return nil, fmt.Errorf("custody document: %w", err)
	}

	r := &Record{
		ID:           assetID,
		HolderName:   docString(doc, "holder_name"),
		SerialNumber: docString(doc, "serial_number"),
		IssuedAt:     docString(doc, "issued_at"),
		ExpiresAt:    docString(doc, "expires_at"),
	}

	rawLog, _ := doc["movement_log"].([]any)
	r.MovementLog = make([]MovementEntry, 0, len(rawLog))
	for i, raw := range rawLog {
		entryDoc, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("custody document %s: movement %d has unexpected shape", assetID, i)
		}
		entry, err := decodeEntry(entryDoc)
		if err != nil {
			return nil, fmt.Errorf("custody document %s: movement %d: %w", assetID, i, err)
		}
		r.MovementLog = append(r.MovementLog, entry)
	}

	// The stored projection is advisory; recompute so a hand-edited
	// document can never disagree with its own log.
	r.applyProjection()
	return r, nil
}

func decodeEntry(doc ledger.Document) (MovementEntry, error) {
	movementType, err := ParseMovementType(docString(doc, "movement_type"))
	if err != nil {
		return MovementEntry{}, err
	}
	timestamp, err := time.Parse(time.RFC3339, docString(doc, "timestamp"))
	if err != nil {
		return MovementEntry{}, fmt.Errorf("bad timestamp: %w", err)
	}
	entry := MovementEntry{
		ID:         id.MovementID(docString(doc, "id")),
		Type:       movementType,
		PersonName: docString(doc, "person_name"),
		Timestamp:  timestamp,
		Notes:      docString(doc, "notes"),
		RecordedBy: id.UserID(docString(doc, "recorded_by")),
		EditedBy:   id.UserID(docString(doc, "edited_by")),
	}
	if entry.ID.IsNil() {
		return MovementEntry{}, fmt.Errorf("movement entry has no id")
	}
	if raw := docString(doc, "edited_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			entry.EditedAt = &t
		}
	}
	return entry, nil
}

func docString(doc ledger.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}
