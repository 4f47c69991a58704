package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/datbaby/confirmation-relay/internal/api"
	"github.com/datbaby/confirmation-relay/internal/asa"
	"github.com/datbaby/confirmation-relay/internal/config"
	"github.com/datbaby/confirmation-relay/internal/contacts"
	"github.com/datbaby/confirmation-relay/internal/db"
	"github.com/datbaby/confirmation-relay/internal/mapping"
	redisclient "github.com/datbaby/confirmation-relay/internal/redis"
	"github.com/datbaby/confirmation-relay/internal/relay"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("webhook-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it the mapping and confirmations live in
	// JSON files under DATA_DIR.
	var pgPool *pgxpool.Pool
	var store mapping.Store
	if cfg.UsePostgres() {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		pgStore := mapping.NewPgStore(pgPool)
		initCtx, cancelInit := context.WithTimeout(rootCtx, 10*time.Second)
		err = pgStore.InitSchema(initCtx)
		cancelInit()
		if err != nil {
			log.Fatalf("postgres schema init error: %v", err)
		}
		store = pgStore
	} else {
		log.Printf("no POSTGRES_DSN set, persisting to JSON files in %s", cfg.DataDir)
		store = mapping.NewFileStore(cfg.DataDir)
	}

	// Redis is optional too: without it the status cache and confirm lock are
	// in-process, which is fine for a single replica.
	var rdb *redis.Client
	var cache relay.StatusCache
	var locker redisclient.Locker
	if cfg.UseRedis() {
		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		cache = relay.NewRedisCache(rdb, cfg.StatusCacheTTL)
		locker = redisclient.NewRedisConfirmLocker(rdb, cfg.LockTTL)
	} else {
		log.Println("no REDIS_ADDR set, using in-process status cache and confirm lock")
		cache = relay.NewMemoryCache(cfg.StatusCacheTTL)
		locker = redisclient.NewLocalLocker()
	}

	remote := asa.NewClient(cfg.ASABaseURL, cfg.ASAToken, cfg.StatusTimeout, cfg.ConfirmTimeout)

	var directory relay.ContactDirectory
	if cfg.DigisacToken != "" {
		directory = contacts.NewClient(cfg.DigisacBaseURL, cfg.DigisacToken)
	} else {
		log.Println("no DIGISAC_TOKEN set, contact directory lookups disabled")
	}

	svc := relay.NewService(store, remote, cache, locker)
	resolver := relay.NewResolver(directory)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Resolver: resolver,
		Store:    store,
		PgPool:   pgPool,
		Redis:    rdb,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down webhook-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
