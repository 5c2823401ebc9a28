package infrastructure

import (
	"context"
	"log/slog"

	"planguard/internal/catalog"
	"planguard/internal/config"
	"planguard/internal/repository"
	"planguard/internal/service"
	transportGRPC "planguard/internal/transport/grpc"
	transportHTTP "planguard/internal/transport/http"
	transportNATS "planguard/internal/transport/nats"
	"planguard/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	deps := service.Deps{Catalog: cat}

	// ── Storage ────────────────────────────────────────────────────────────────
	switch cfg.Storage {
	case "postgres":
		db, err := connectPostgres(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		cleanupFns = append(cleanupFns, db.Close)
		pg := repository.NewPostgresStore(db)
		deps.Store, deps.Audit = pg, pg
	case "memory":
		slog.Warn("bootstrap: using in-memory storage, state is lost on restart")
		mem := repository.NewMemoryStore()
		deps.Store, deps.Audit = mem, mem
	}

	if cfg.RedisEnabled() {
		rdb, err := connectRedis(ctx, cfg.RedisAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })
		deps.Idempotency = repository.NewRedisIdempotency(rdb)
	} else {
		slog.Info("bootstrap: redis not configured, idempotency keys are ignored")
	}

	// ── Bus and transports ─────────────────────────────────────────────────────
	var servers []Server

	switch cfg.BusProvider {
	case "nats":
		nc, err := connectNats(cfg.NatsAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, nc.Close)
		deps.Bus = transportNATS.NewBus(nc)

		svc := service.NewEngine(deps)
		if cfg.WorkerProvider == "nats" {
			servers = append(servers, worker.NewAuditWorker(svc, nc))
		}
		servers = append(servers, transportNATS.NewHandler(svc, nc))
		servers = append(servers, httpAndGRPC(cfg, svc)...)

	case "grpc":
		bus, cleanup, err := transportGRPC.NewBusFromAddr(cfg.GRPCAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, cleanup)
		deps.Bus = bus

		// The gRPC EventService records events itself, so it doubles as the worker.
		svc := service.NewEngine(deps)
		servers = append(servers, httpAndGRPC(cfg, svc)...)
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

func httpAndGRPC(cfg *config.Config, svc service.PaymentService) []Server {
	servers := []Server{transportGRPC.NewServer(cfg.GRPCListenAddr(), svc)}
	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		limiter := transportHTTP.NewClientLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst)
		servers = append(servers, transportHTTP.NewServer(addr, svc, limiter))
	} else {
		slog.Info("bootstrap: " + apiErr.Error())
	}
	return servers
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
