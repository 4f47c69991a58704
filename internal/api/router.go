package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/datbaby/confirmation-relay/internal/mapping"
	"github.com/datbaby/confirmation-relay/internal/relay"
)

type RouterConfig struct {
	Service  *relay.Service
	Resolver *relay.Resolver
	Store    mapping.Store
	PgPool   *pgxpool.Pool // nil when running in JSON-file mode
	Redis    *redis.Client // nil when running without shared cache/lock
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/", homeHandler)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	confirm := confirmWebhookHandler(cfg.Service, cfg.Resolver)
	r.Post("/webhook/confirmar", confirm)
	r.Post("/webhook/digisac", confirm)
	r.Get("/webhook/status", statusHandler(cfg.Service))
	r.Post("/webhook/upload-mapeamento", uploadMappingHandler(cfg.Store))
	r.Get("/webhook/agenda-medico", doctorAgendaHandler(cfg.Service))
	r.Get("/webhook/listar-medicos", listDoctorsHandler(cfg.Service))
	r.Post("/webhook/testar", probeHandler(cfg.Service))

	return r
}
