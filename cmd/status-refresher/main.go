package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/datbaby/confirmation-relay/internal/asa"
	"github.com/datbaby/confirmation-relay/internal/config"
	"github.com/datbaby/confirmation-relay/internal/db"
	"github.com/datbaby/confirmation-relay/internal/mapping"
	redisclient "github.com/datbaby/confirmation-relay/internal/redis"
	"github.com/datbaby/confirmation-relay/internal/relay"
)

// status-refresher rebuilds the aggregated status report on an interval so
// that the shared Redis cache stays warm and webhook status reads never pay
// the full fan-out cost. It only makes sense with Redis configured; without
// a shared cache the rebuilt report is invisible to the server process.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("status-refresher starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	if !cfg.UseRedis() {
		log.Fatal("status-refresher requires REDIS_ADDR or REDIS_URL, nothing to refresh otherwise")
	}

	log.Printf("running status refresher in env=%s interval=%s", cfg.Env, cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store mapping.Store
	if cfg.UsePostgres() {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")
		store = mapping.NewPgStore(pgPool)
	} else {
		store = mapping.NewFileStore(cfg.DataDir)
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	remote := asa.NewClient(cfg.ASABaseURL, cfg.ASAToken, cfg.StatusTimeout, cfg.ConfirmTimeout)
	cache := relay.NewRedisCache(rdb, cfg.StatusCacheTTL)
	locker := redisclient.NewRedisConfirmLocker(rdb, cfg.LockTTL)
	svc := relay.NewService(store, remote, cache, locker)

	// Warm the cache once at startup.
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping status refresher")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *relay.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	report, err := svc.RefreshStatus(runCtx)
	if err != nil {
		log.Printf("status refresh error: %v", err)
		return
	}
	log.Printf("status refresh complete in %s: %d enviados, %d confirmados, %d pendentes",
		time.Since(start), report.TotalSent, report.TotalConfirmed, report.TotalPending)
}
