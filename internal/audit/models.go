package audit

import "time"

// Record is an immutable, append-only audit log entry. Every INGEST, VIEW,
// and DECRYPT action produces one; together they form the non-repudiation
// trail for disclosures.
//
// Invariants:
// - Records are never updated or deleted.
// - A successful decryption is never reported to the caller before its
//   DECRYPT record has been appended.
//
// Storage recommendation (Postgres):
// - Table audit_log with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Record struct {
	ID string `json:"id" db:"id"`

	// Actor is the authenticated identity that caused the action.
	Actor string `json:"actor" db:"actor"`

	Action Action `json:"action" db:"action"`

	// Target identifiers. ImageID is always set; RegionID only for
	// per-region actions (DECRYPT).
	ImageID  string `json:"image_id" db:"image_id"`
	RegionID string `json:"region_id,omitempty" db:"region_id"`

	// Purpose is the caller-supplied justification for a disclosure.
	Purpose string `json:"purpose,omitempty" db:"purpose"`

	// PipelineVersion ties the record to the detector/codec generation.
	PipelineVersion string `json:"pipeline_version,omitempty" db:"pipeline_version"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type Action string

const (
	ActionIngest  Action = "INGEST"
	ActionView    Action = "VIEW"
	ActionDecrypt Action = "DECRYPT"
)
