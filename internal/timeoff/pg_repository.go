package timeoff

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) InsertInterval(ctx context.Context, iv Interval) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO time_off_intervals (key, doctor_id, start_date, end_date, reason, cancelled, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())
	`, iv.Key, iv.DoctorID, iv.StartDate, iv.EndDate, iv.Reason)
	return err
}

func (r *PgRepository) MarkCancelled(ctx context.Context, doctorID, key uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_off_intervals
		SET cancelled = true
		WHERE doctor_id = $1
		  AND key = $2
	`, doctorID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIntervalNotFound
	}
	return nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, doctor_id, start_date, end_date, reason, cancelled, created_at
		FROM time_off_intervals
		WHERE doctor_id = $1
		ORDER BY start_date DESC, created_at DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Key, &iv.DoctorID, &iv.StartDate, &iv.EndDate, &iv.Reason, &iv.Cancelled, &iv.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
