package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/fraghub/internal/accounts"
	"github.com/geocoder89/fraghub/internal/auth"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/config"
	"github.com/geocoder89/fraghub/internal/db"
	"github.com/geocoder89/fraghub/internal/forum"
	"github.com/geocoder89/fraghub/internal/graph"
	httpx "github.com/geocoder89/fraghub/internal/http"
	"github.com/geocoder89/fraghub/internal/http/handlers"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/geocoder89/fraghub/internal/ratelimit"
	"github.com/geocoder89/fraghub/internal/redisclient"
	"github.com/geocoder89/fraghub/internal/repo/memory"
	"github.com/geocoder89/fraghub/internal/repo/postgres"
	"github.com/geocoder89/fraghub/internal/security"
	"github.com/geocoder89/fraghub/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// userStore is what every consumer of the users table needs.
type userStore interface {
	accounts.UserStore
	forum.AuthorLookup
	Ping(ctx context.Context) error
}

type stores struct {
	users    userStore
	posts    forum.PostStore
	comments forum.CommentStore
	close    func()
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "fraghub-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	st, err := openStores(cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.close()

	hasher := security.NewHasher(security.DefaultCost)
	tokens := auth.NewManager(cfg.JWTSecret, auth.DefaultTTL)

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	err = db.EnsureAdminUser(seedCtx, st.users, hasher, cfg)
	cancelSeed()
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	checks := map[string]handlers.Check{"store": st.users.Ping}

	resolver := &graph.Resolver{
		Forum:    forum.NewService(st.posts, st.comments, st.users, log),
		Accounts: accounts.NewService(st.users, hasher, tokens, log),
		Stats: stats.NewClient(stats.Options{
			BaseURL:  cfg.StatsAPIURL,
			CacheTTL: cfg.StatsCacheTTL(),
			Prom:     prom,
			Log:      log,
		}),
		Prom: prom,
		Log:  log,
	}

	if cfg.RateLimitEnabled {
		var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()

		if cfg.RedisAddr != "" {
			redisCtx, cancelRedis := config.WithTimeout(3 * time.Second)
			rdb, err := redisclient.Connect(redisCtx, redisclient.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			cancelRedis()

			if err != nil {
				log.Warn("redis unavailable, rate limits are per instance", "err", err)
			} else {
				defer rdb.Close()

				limiter = ratelimit.NewRedisLimiter(rdb)
				checks["redis"] = rdb.Ready
			}
		}

		resolver.Guard = ratelimit.NewGuard(limiter, ratelimit.DefaultRules, prom, log)
	}

	schema, err := graph.NewSchema(resolver)
	if err != nil {
		log.Error("schema build failed", "err", err)
		os.Exit(1)
	}

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Config:   cfg,
		Prom:     prom,
		Gatherer: reg,
		Schema:   schema,
		Sessions: authctx.NewBuilder(tokens),
		Checks:   checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStores(cfg config.Config, prom *observability.Prom, log *slog.Logger) (stores, error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store, data is lost on restart")

		users := memory.NewUsersRepo()
		return stores{
			users:    users,
			posts:    memory.NewPostsRepo(users),
			comments: memory.NewCommentsRepo(users),
			close:    func() {},
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DBURL); err != nil {
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := db.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		return stores{}, fmt.Errorf("connect: %w", err)
	}

	return stores{
		users:    postgres.NewUsersRepo(pool, prom),
		posts:    postgres.NewPostsRepo(pool, prom),
		comments: postgres.NewCommentsRepo(pool, prom),
		close:    pool.Close,
	}, nil
}
