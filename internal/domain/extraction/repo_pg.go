package extraction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type extractionRepoPG struct{ pool *pgxpool.Pool }

func NewExtractionRepoPG(pool *pgxpool.Pool) ExtractionRepository {
	return &extractionRepoPG{pool: pool}
}

const recCols = `id, filename, kind, outcome, method, reason, parameters_found,
	completeness, total_records, warnings, duration_ms, created_at`

func (r *extractionRepoPG) scanRow(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Filename, &rec.Kind, &rec.Outcome, &rec.Method, &rec.Reason,
		&rec.ParametersFound, &rec.Completeness, &rec.TotalRecords, &rec.Warnings,
		&rec.DurationMS, &rec.CreatedAt)
	return &rec, err
}

func (r *extractionRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	if rec.Warnings == nil {
		rec.Warnings = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO extraction_log (id, filename, kind, outcome, method, reason,
			parameters_found, completeness, total_records, warnings, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`,
		rec.ID, rec.Filename, rec.Kind, rec.Outcome, rec.Method, rec.Reason,
		rec.ParametersFound, rec.Completeness, rec.TotalRecords, rec.Warnings,
		rec.DurationMS).Scan(&rec.CreatedAt)
}

func (r *extractionRepoPG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM extraction_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+recCols+` FROM extraction_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
