package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medora/clinic-scheduling/internal/db"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 100)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 9000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedTimeOff(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed time off: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		// Roughly a quarter of doctors review booking requests manually.
		requiresApproval := gofakeit.Number(0, 3) == 0
		feeCents := gofakeit.Number(40, 300) * 100

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, requires_approval, fee_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, spec, requiresApproval, feeCents)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding weekly schedules for %d doctors", len(doctorIDs))

	store := schedule.NewStore(schedule.NewPgRepository(pool))

	workdays := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}

	for _, doctorID := range doctorIDs {
		ws := make(schedule.WeeklySchedule)
		for _, day := range workdays {
			// A few doctors skip some weekdays entirely.
			if gofakeit.Number(0, 4) == 0 {
				continue
			}
			startHour := gofakeit.Number(8, 10)
			endHour := gofakeit.Number(15, 18)
			ws[day] = schedule.Window{
				Start: schedule.TimeOfDay(startHour * 60),
				End:   schedule.TimeOfDay(endHour * 60),
			}
		}

		if err := store.SetSchedule(ctx, doctorID, ws); err != nil {
			return err
		}
	}

	log.Println("weekly schedules seeded")
	return nil
}

func seedTimeOff(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding time off for %d doctors", len(doctorIDs))

	registry := timeoff.NewRegistry(timeoff.NewPgRepository(pool))

	reasons := []string{"Vacation", "Conference", "Personal", "Training"}

	for _, doctorID := range doctorIDs {
		// Not every doctor has upcoming time off.
		if gofakeit.Number(0, 2) != 0 {
			continue
		}

		start := time.Now().AddDate(0, 0, gofakeit.Number(1, 20))
		end := start.AddDate(0, 0, gofakeit.Number(0, 5))
		reason := reasons[gofakeit.Number(0, len(reasons)-1)]

		if _, err := registry.AddInterval(ctx, doctorID, start, end, reason); err != nil {
			return err
		}
	}

	log.Println("time off seeded")
	return nil
}
