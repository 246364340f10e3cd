package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) (WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM doctor_schedules
		WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ws := make(WeeklySchedule)
	for rows.Next() {
		var weekday, startMinute, endMinute int
		if err := rows.Scan(&weekday, &startMinute, &endMinute); err != nil {
			return nil, err
		}
		ws[time.Weekday(weekday)] = Window{
			Start: TimeOfDay(startMinute),
			End:   TimeOfDay(endMinute),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ws, nil
}

// SetWeeklySchedule replaces all of the doctor's schedule rows in one
// transaction.
func (r *PgRepository) SetWeeklySchedule(ctx context.Context, doctorID uuid.UUID, ws WeeklySchedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM doctor_schedules
		WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return err
	}

	for day, w := range ws {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_schedules (doctor_id, weekday, start_minute, end_minute, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, doctorID, int(day), int(w.Start), int(w.End))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
