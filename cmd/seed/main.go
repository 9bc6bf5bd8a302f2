package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/auth"
	"github.com/hackgods/hospital-queue-service/internal/db"
	"github.com/hackgods/hospital-queue-service/internal/queue"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

const seedPassword = "password123"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 20, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	patients, err := seedPatients(context.Background(), pool, 500, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedBookings(context.Background(), pool, doctors, patients, log); err != nil {
		log.Fatal().Err(err).Msg("seed bookings")
	}

	log.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) ([]user.User, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	specializations := []string{
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

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return nil, err
	}

	repo := user.NewPgRepository(pool)

	doctors := make([]user.User, 0, count)
	for i := 0; i < count; i++ {
		created, err := repo.Create(ctx, user.User{
			UID:            uuid.New(),
			Email:          gofakeit.Email(),
			Role:           user.RoleDoctor,
			Name:           "Dr. " + gofakeit.Name(),
			Specialization: specializations[gofakeit.Number(0, len(specializations)-1)],
			PasswordHash:   hash,
		})
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *created)
	}

	log.Info().Msg("doctors seeded")
	return doctors, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, log zerolog.Logger) ([]user.User, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return nil, err
	}

	repo := user.NewPgRepository(pool)

	patients := make([]user.User, 0, count)
	for i := 0; i < count; i++ {
		created, err := repo.Create(ctx, user.User{
			UID:          uuid.New(),
			Email:        gofakeit.Email(),
			Role:         user.RolePatient,
			Name:         gofakeit.Name(),
			PasswordHash: hash,
		})
		if err != nil {
			return nil, err
		}
		patients = append(patients, *created)

		if (i+1)%100 == 0 {
			log.Info().Int("seeded", i+1).Int("total", count).Msg("patients progress")
		}
	}

	log.Info().Msg("patients seeded")
	return patients, nil
}

// seedBookings puts a handful of patients in each doctor's queue for today,
// through the real allocation path so queue counters stay consistent.
func seedBookings(ctx context.Context, pool *pgxpool.Pool, doctors, patients []user.User, log zerolog.Logger) error {
	if len(doctors) == 0 || len(patients) == 0 {
		return nil
	}

	repo := queue.NewPgRepository(pool)
	today := time.Now().Format("2006-01-02")

	total := 0
	for _, d := range doctors {
		n := gofakeit.Number(0, 8)
		for i := 0; i < n; i++ {
			p := patients[gofakeit.Number(0, len(patients)-1)]
			_, err := repo.CreateWaiting(ctx, queue.Booking{
				PatientID:    p.UID,
				PatientEmail: p.Email,
				DoctorID:     d.UID,
				DoctorName:   d.Name,
				Date:         today,
			})
			if err != nil {
				return err
			}
			total++
		}
	}

	log.Info().Int("bookings", total).Str("date", today).Msg("bookings seeded")
	return nil
}
