package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pii-vault/internal/region"
	"pii-vault/pkg/utils"
)

// PostgresImages implements Images over database/sql (pgx stdlib driver).
//
// Assumed schema:
//
//	images  (id TEXT PK, original_key TEXT, redacted_key TEXT,
//	         created_at TIMESTAMPTZ, pipeline_version TEXT, created_by TEXT)
//	regions (id TEXT PK, image_id TEXT REFERENCES images(id) ON DELETE CASCADE,
//	         type TEXT, polygon_json TEXT, confidence DOUBLE PRECISION,
//	         sha256 TEXT, enc_algo TEXT, nonce_hex TEXT, key_ref TEXT)
type PostgresImages struct {
	db *sql.DB
}

func NewPostgresImages(db *sql.DB) *PostgresImages {
	return &PostgresImages{db: db}
}

func (s *PostgresImages) InsertImage(ctx context.Context, img region.Image, regions []region.Region) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const qImage = `
INSERT INTO images (id, original_key, redacted_key, created_at, pipeline_version, created_by)
VALUES ($1,$2,$3,$4,$5,$6)
`
		if _, err := tx.ExecContext(ctx, qImage,
			img.ID,
			img.OriginalKey,
			img.RedactedKey,
			img.CreatedAt,
			img.PipelineVersion,
			img.CreatedBy,
		); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}

		const qRegion = `
INSERT INTO regions (id, image_id, type, polygon_json, confidence, sha256, enc_algo, nonce_hex, key_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
		for _, r := range regions {
			poly, err := json.Marshal(r.Polygon)
			if err != nil {
				return fmt.Errorf("marshal polygon: %w", err)
			}
			if _, err := tx.ExecContext(ctx, qRegion,
				r.ID,
				r.ImageID,
				r.Type,
				string(poly),
				r.Confidence,
				r.SHA256,
				r.EncAlgo,
				r.NonceHex,
				r.KeyRef,
			); err != nil {
				return fmt.Errorf("insert region %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresImages) GetImage(ctx context.Context, imageID string) (region.Image, error) {
	const q = `
SELECT id, original_key, redacted_key, created_at, pipeline_version, created_by
FROM images
WHERE id = $1
`
	var img region.Image
	if err := s.db.QueryRowContext(ctx, q, imageID).Scan(
		&img.ID,
		&img.OriginalKey,
		&img.RedactedKey,
		&img.CreatedAt,
		&img.PipelineVersion,
		&img.CreatedBy,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return region.Image{}, ErrNotFound
		}
		return region.Image{}, err
	}
	return img, nil
}

func (s *PostgresImages) ListRegions(ctx context.Context, imageID string) ([]region.Region, error) {
	const q = `
SELECT id, image_id, type, polygon_json, confidence, sha256, enc_algo, nonce_hex, key_ref
FROM regions
WHERE image_id = $1
ORDER BY id
`
	rows, err := s.db.QueryContext(ctx, q, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegions(rows)
}

func (s *PostgresImages) GetRegions(ctx context.Context, imageID string, regionIDs []string) ([]region.Region, error) {
	if len(regionIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, image_id, type, polygon_json, confidence, sha256, enc_algo, nonce_hex, key_ref
FROM regions
WHERE image_id = $1 AND id = ANY($2)
ORDER BY id
`
	rows, err := s.db.QueryContext(ctx, q, imageID, regionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegions(rows)
}

func (s *PostgresImages) DeleteImage(ctx context.Context, imageID string) ([]string, error) {
	var ids []string
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const qRegions = `SELECT id FROM regions WHERE image_id = $1`
		rows, err := tx.QueryContext(ctx, qRegions, imageID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		// Region rows go with the image via ON DELETE CASCADE.
		const qImage = `DELETE FROM images WHERE id = $1`
		res, err := tx.ExecContext(ctx, qImage, imageID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func scanRegions(rows *sql.Rows) ([]region.Region, error) {
	var out []region.Region
	for rows.Next() {
		var r region.Region
		var polyJSON string
		if err := rows.Scan(
			&r.ID,
			&r.ImageID,
			&r.Type,
			&polyJSON,
			&r.Confidence,
			&r.SHA256,
			&r.EncAlgo,
			&r.NonceHex,
			&r.KeyRef,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(polyJSON), &r.Polygon); err != nil {
			return nil, fmt.Errorf("region %s polygon: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
