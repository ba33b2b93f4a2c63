package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medconnect/booking-server/internal/db"
)

const (
	doctorCount  = 50
	patientCount = 2000
	slotDays     = 14
)

// Half-hour consultation slots between 09:00 and 17:00.
var slotWindows = [][2]string{
	{"09:00", "09:30"}, {"09:30", "10:00"}, {"10:00", "10:30"}, {"10:30", "11:00"},
	{"11:00", "11:30"}, {"11:30", "12:00"}, {"14:00", "14:30"}, {"14:30", "15:00"},
	{"15:00", "15:30"}, {"15:30", "16:00"}, {"16:00", "16:30"}, {"16:30", "17:00"},
}

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

	doctorIDs, err := seedDoctors(context.Background(), pool, doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, patientCount); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedTimeSlots(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed time slots: %v", err)
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
		fee := int64(gofakeit.Number(10, 60)) * 25

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, name, email, specialty, status, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'approved', $6, now(), now())
		`, id, uuid.New(), name, gofakeit.Email(), spec, fee)
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
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), uuid.New(), gofakeit.Name(), gofakeit.Email())
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

func seedTimeSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding %d days of slots for %d doctors", slotDays, len(doctorIDs))

	today := time.Now().UTC().Truncate(24 * time.Hour)

	for day := 1; day <= slotDays; day++ {
		date := today.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, doctorID := range doctorIDs {
			for _, window := range slotWindows {
				_, err := tx.Exec(ctx, `
					INSERT INTO time_slots (id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, FALSE, now(), now())
				`, uuid.New(), doctorID, date, window[0], window[1])
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("slots seeded for %s", date.Format("2006-01-02"))
	}

	log.Println("time slots seeded")
	return nil
}
