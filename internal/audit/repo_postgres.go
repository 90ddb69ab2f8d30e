package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit records to the audit_log table.
//
// Assumed schema:
//
//	audit_log (id TEXT PK, actor TEXT, action TEXT, image_id TEXT,
//	           region_id TEXT, purpose TEXT, pipeline_version TEXT,
//	           timestamp TIMESTAMPTZ)
//
// The table should carry an INSERT-only policy; this type offers no way to
// update or delete.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO audit_log (id, actor, action, image_id, region_id, purpose, pipeline_version, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.Actor,
		rec.Action,
		rec.ImageID,
		rec.RegionID,
		rec.Purpose,
		rec.PipelineVersion,
		rec.Timestamp,
	)
	return err
}
