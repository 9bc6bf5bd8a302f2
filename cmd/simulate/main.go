// Command simulate hammers a running api-server with concurrent bookings and
// queue advancements, and reports latency/outcome stats. Useful for checking
// that queue numbers stay unique and advancement stays sane under contention.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/auth"
	"github.com/hackgods/hospital-queue-service/internal/config"
	"github.com/hackgods/hospital-queue-service/internal/db"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	BookRatio  float64 // fraction of operations that are bookings; rest advance
}

type actor struct {
	uid   uuid.UUID
	email string
	name  string
	token string
}

type DataPool struct {
	Patients []actor
	Doctors  []actor
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(pct int) time.Duration {
		i := len(latencies) * pct / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return latencies[i]
	}
	return avg, idx(50), idx(95)
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "simulate").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	sim := SimConfig{
		APIBaseURL: envOr("SIM_API_URL", "http://localhost:"+cfg.HTTPPort),
		Duration:   durationOr("SIM_DURATION", 30*time.Second),
		Workers:    intOr("SIM_WORKERS", 16),
		BookRatio:  0.8,
	}

	ctx, cancel := context.WithTimeout(context.Background(), sim.Duration+time.Minute)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	pool, err := loadActors(ctx, pgPool, cfg, 200, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("load actors")
	}
	log.Info().Int("patients", len(pool.Patients)).Int("doctors", len(pool.Doctors)).Msg("actor pool loaded")

	bookMetrics := &OperationMetrics{}
	advanceMetrics := &OperationMetrics{}

	today := time.Now().Format("2006-01-02")
	client := &http.Client{Timeout: 10 * time.Second}

	deadline := time.Now().Add(sim.Duration)
	var wg sync.WaitGroup
	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				if rng.Float64() < sim.BookRatio {
					runBooking(ctx, client, sim.APIBaseURL, pool, today, rng, bookMetrics)
				} else {
					runAdvance(ctx, client, sim.APIBaseURL, pool, today, rng, advanceMetrics)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	report(log, "book", bookMetrics)
	report(log, "advance", advanceMetrics)
}

func report(log zerolog.Logger, op string, m *OperationMetrics) {
	avg, p50, p95 := m.Stats()
	log.Info().
		Str("op", op).
		Int64("total", atomic.LoadInt64(&m.Total)).
		Int64("success", atomic.LoadInt64(&m.Success)).
		Int64("conflict", atomic.LoadInt64(&m.Conflict)).
		Int64("error", atomic.LoadInt64(&m.Error)).
		Dur("avg", avg).
		Dur("p50", p50).
		Dur("p95", p95).
		Msg("simulation results")
}

// loadActors pulls seeded users from the database and mints tokens for them
// directly, skipping the login endpoint so the rate limiter does not skew
// the run.
func loadActors(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, patientLimit, doctorLimit int) (*DataPool, error) {
	repo := user.NewPgRepository(pool)

	doctors, err := repo.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	if len(doctors) > doctorLimit {
		doctors = doctors[:doctorLimit]
	}

	rows, err := pool.Query(ctx, `
		SELECT uid, email FROM users WHERE role = 'patient' LIMIT $1
	`, patientLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dp := &DataPool{}
	for rows.Next() {
		var a actor
		if err := rows.Scan(&a.uid, &a.email); err != nil {
			return nil, err
		}
		a.token, err = auth.MakeToken(a.uid.String(), a.email, cfg.JWTSecret, time.Hour)
		if err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range doctors {
		token, err := auth.MakeToken(d.UID.String(), d.Email, cfg.JWTSecret, time.Hour)
		if err != nil {
			return nil, err
		}
		dp.Doctors = append(dp.Doctors, actor{uid: d.UID, email: d.Email, name: d.Name, token: token})
	}

	if len(dp.Patients) == 0 || len(dp.Doctors) == 0 {
		return nil, fmt.Errorf("no seeded users found, run cmd/seed first")
	}

	return dp, nil
}

func runBooking(ctx context.Context, client *http.Client, baseURL string, pool *DataPool, date string, rng *rand.Rand, m *OperationMetrics) {
	patient := pool.Patients[rng.Intn(len(pool.Patients))]
	doctor := pool.Doctors[rng.Intn(len(pool.Doctors))]

	body, _ := json.Marshal(map[string]string{
		"doctor_id":   doctor.uid.String(),
		"doctor_name": doctor.name,
		"date":        date,
	})

	start := time.Now()
	status, err := post(ctx, client, baseURL+"/appointments", patient.token, body)
	m.Record(time.Since(start), err == nil && status == http.StatusCreated, status == http.StatusConflict)
}

func runAdvance(ctx context.Context, client *http.Client, baseURL string, pool *DataPool, date string, rng *rand.Rand, m *OperationMetrics) {
	doctor := pool.Doctors[rng.Intn(len(pool.Doctors))]

	url := fmt.Sprintf("%s/queues/%s/%s/advance", baseURL, doctor.uid, date)

	start := time.Now()
	status, err := post(ctx, client, url, doctor.token, nil)
	m.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func post(ctx context.Context, client *http.Client, url, token string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func intOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
