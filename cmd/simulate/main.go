package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datbaby/confirmation-relay/internal/mapping"
)

// simulate fires realistic webhook traffic at a running relay: confirmation
// payloads in the shapes the messaging platform actually sends, plus status
// and agenda reads, and reports per-operation latency.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PhoneRatio   float64
	CommandRatio float64
	ReadRatio    float64
	DataDir      string
}

// DataPool holds the phones and appointment ids the workers pick from,
// loaded from the same mapping snapshot the server serves.
type DataPool struct {
	Phones         []string
	AppointmentIDs []string
	Doctors        []string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	NotFound  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, notFound bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if notFound {
		atomic.AddInt64(&om.NotFound, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	ConfirmPhone   OperationMetrics
	ConfirmCommand OperationMetrics
	Status         OperationMetrics
	Agenda         OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d phone=%.2f command=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.PhoneRatio, cfg.CommandRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := loadDataPool(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d phones, %d appointments, %d doctors",
		len(pool.Phones), len(pool.AppointmentIDs), len(pool.Doctors))

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 5),
		PhoneRatio:   getFloat("SIM_PHONE_RATIO", 0.5),
		CommandRatio: getFloat("SIM_COMMAND_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		DataDir:      getEnv("DATA_DIR", "."),
	}

	total := cfg.PhoneRatio + cfg.CommandRatio + cfg.ReadRatio
	if total > 0 {
		cfg.PhoneRatio /= total
		cfg.CommandRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

// loadDataPool reads the mapping snapshot the server is using so the
// simulated payloads hit real phones and ids.
func loadDataPool(ctx context.Context, cfg SimConfig) (*DataPool, error) {
	store := mapping.NewFileStore(cfg.DataDir)
	snap, err := store.LoadMapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapping from %s: %w", cfg.DataDir, err)
	}

	pool := &DataPool{}
	seenDoctors := make(map[string]bool)
	for phone, refs := range snap {
		pool.Phones = append(pool.Phones, phone)
		for _, ref := range refs {
			if ref.ID != "" {
				pool.AppointmentIDs = append(pool.AppointmentIDs, ref.ID)
			}
			if ref.Doctor != "" && !seenDoctors[ref.Doctor] {
				seenDoctors[ref.Doctor] = true
				pool.Doctors = append(pool.Doctors, ref.Doctor)
			}
		}
	}

	if len(pool.Phones) == 0 {
		return nil, fmt.Errorf("mapping snapshot is empty, run the seed tool first")
	}

	return pool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.PhoneRatio:
				s.doConfirmPhone(ctx, rng)
			case r < s.config.PhoneRatio+s.config.CommandRatio:
				s.doConfirmCommand(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doStatus(ctx)
				} else {
					s.doAgenda(ctx, rng)
				}
			}
		}
	}
}

// doConfirmPhone posts the phone in one of the shapes the platform uses:
// a bare "telefone", a "phone" alias, or digits stripped of formatting.
func (s *Simulator) doConfirmPhone(ctx context.Context, rng *rand.Rand) {
	phone := s.pool.Phones[rng.Intn(len(s.pool.Phones))]

	var payload map[string]any
	switch rng.Intn(3) {
	case 0:
		payload = map[string]any{"telefone": phone}
	case 1:
		payload = map[string]any{"phone": phone}
	default:
		payload = map[string]any{"telefone": digitsOnly(phone)}
	}

	status, latency, err := s.post(ctx, "/webhook/confirmar", payload)
	s.metrics.ConfirmPhone.Record(latency, err == nil && status == http.StatusOK, status == http.StatusNotFound)
}

func (s *Simulator) doConfirmCommand(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.AppointmentIDs) == 0 {
		return
	}
	id := s.pool.AppointmentIDs[rng.Intn(len(s.pool.AppointmentIDs))]

	payload := map[string]any{
		"event": "bot.command",
		"data":  map[string]any{"command": id},
	}

	status, latency, err := s.post(ctx, "/webhook/digisac", payload)
	s.metrics.ConfirmCommand.Record(latency, err == nil && status == http.StatusOK, status == http.StatusNotFound)
}

func (s *Simulator) doStatus(ctx context.Context) {
	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET", s.config.APIBaseURL+"/webhook/status", nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Status.Record(latency, success, false)
}

func (s *Simulator) doAgenda(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.Doctors) == 0 {
		return
	}
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		s.config.APIBaseURL+"/webhook/agenda-medico?medico="+url.QueryEscape(doctor), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Agenda.Record(latency, success, false)
}

func (s *Simulator) post(ctx context.Context, path string, payload map[string]any) (int, time.Duration, error) {
	body, _ := json.Marshal(payload)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, time.Since(start), err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	resp.Body.Close()
	return resp.StatusCode, latency, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Confirm by phone", &s.metrics.ConfirmPhone)
	printOperationReport("Confirm by command", &s.metrics.ConfirmCommand)
	printOperationReport("Status read", &s.metrics.Status)
	printOperationReport("Agenda read", &s.metrics.Agenda)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	notFound := atomic.LoadInt64(&om.NotFound)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if notFound > 0 {
		fmt.Printf("  Not found: %d (%.1f%%)\n", notFound, float64(notFound)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
