// simulate drives concurrent booking traffic against a running api-server
// and then audits the database: however hard the workers race, no slot may
// end up referenced by more than one live appointment, and no booked slot
// may be left without one.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medconnect/booking-server/internal/config"
	"github.com/medconnect/booking-server/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PatientLimit int
	SlotLimit    int
	Contention   int // how many workers aim at the same slot
	PostgresDSN  string
	JWTSecret    string
}

type patientIdentity struct {
	ProfileID uuid.UUID
	Token     string
}

type slotTarget struct {
	SlotID   uuid.UUID
	DoctorID uuid.UUID
}

type DataPool struct {
	Patients []patientIdentity
	Slots    []slotTarget
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d patients, %d open slots", len(pool.Patients), len(pool.Slots))

	var metrics OperationMetrics
	runWorkers(cfg, pool, &metrics)

	avg, p50, p95 := metrics.Stats()
	log.Printf("bookings: total=%d success=%d conflict=%d error=%d",
		atomic.LoadInt64(&metrics.Total),
		atomic.LoadInt64(&metrics.Success),
		atomic.LoadInt64(&metrics.Conflict),
		atomic.LoadInt64(&metrics.Error))
	log.Printf("latency: avg=%s p50=%s p95=%s", avg, p50, p95)

	if err := auditSlotInvariant(context.Background(), pgPool); err != nil {
		log.Fatalf("INVARIANT VIOLATED: %v", err)
	}
	log.Println("slot invariant holds: every booked slot has exactly one live appointment")
}

func runWorkers(cfg SimConfig, pool *DataPool, metrics *OperationMetrics) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
					// Workers in the same contention group pick the same
					// slot index, which is exactly the race being tested.
					slot := pool.Slots[(workerID/max(cfg.Contention, 1))%len(pool.Slots)]
					patient := pool.Patients[rng.Intn(len(pool.Patients))]
					doBooking(ctx, client, cfg.APIBaseURL, patient, slot, metrics)
				}
			}
		}(i)
	}
	wg.Wait()
}

func doBooking(ctx context.Context, client *http.Client, baseURL string, patient patientIdentity, slot slotTarget, metrics *OperationMetrics) {
	payload := map[string]string{
		"doctor_id":    slot.DoctorID.String(),
		"time_slot_id": slot.SlotID.String(),
		"reason":       "load-test consultation",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+patient.Token)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Record(time.Since(start), 0)
		}
		return
	}
	resp.Body.Close()
	metrics.Record(time.Since(start), resp.StatusCode)
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 200),
		Contention:   getInt("SIM_CONTENTION", 5),
		PostgresDSN:  baseCfg.PostgresDSN,
		JWTSecret:    baseCfg.JWTSecret,
	}
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id, user_id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profileID, userID uuid.UUID
		if err := rows.Scan(&profileID, &userID); err != nil {
			return nil, err
		}
		token, err := mintPatientToken(cfg.JWTSecret, userID, profileID)
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
		dp.Patients = append(dp.Patients, patientIdentity{ProfileID: profileID, Token: token})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := pool.Query(ctx, `
		SELECT id, doctor_id FROM time_slots
		WHERE is_booked = FALSE AND slot_date > now()
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var t slotTarget
		if err := slotRows.Scan(&t.SlotID, &t.DoctorID); err != nil {
			return nil, err
		}
		dp.Slots = append(dp.Slots, t)
	}
	if err := slotRows.Err(); err != nil {
		return nil, err
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run cmd/seed first")
	}
	if len(dp.Slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded, run cmd/seed first")
	}

	return dp, nil
}

func mintPatientToken(secret string, userID, profileID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":        userID.String(),
		"role":       "patient",
		"profile_id": profileID.String(),
		"exp":        time.Now().Add(2 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// auditSlotInvariant cross-checks slots and appointments after the run.
func auditSlotInvariant(ctx context.Context, pool *pgxpool.Pool) error {
	var doubleBooked int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT time_slot_id
			FROM appointments
			WHERE status <> 'cancelled'
			GROUP BY time_slot_id
			HAVING count(*) > 1
		) d
	`).Scan(&doubleBooked)
	if err != nil {
		return fmt.Errorf("audit double bookings: %w", err)
	}
	if doubleBooked > 0 {
		return fmt.Errorf("%d slots have more than one live appointment", doubleBooked)
	}

	var orphaned int
	err = pool.QueryRow(ctx, `
		SELECT count(*)
		FROM time_slots s
		WHERE s.is_booked = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.id = s.appointment_id AND a.status <> 'cancelled'
		  )
	`).Scan(&orphaned)
	if err != nil {
		return fmt.Errorf("audit orphaned slots: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("%d slots are booked with no live appointment", orphaned)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
