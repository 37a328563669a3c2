package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-progress/internal/answerkey"
	api "github.com/mind-engage/mindengage-progress/internal/api/http"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
	"github.com/mind-engage/mindengage-progress/internal/submission"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func main() {
	flag.Parse() // glog flags: -v, -logtostderr, ...
	defer glog.Flush()

	cfg := config.Load()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		glog.Exitf("db open failed: %v", err)
	}
	defer dbh.Close()

	key, err := answerkey.Load(cfg.AnswerKeyPath)
	if err != nil {
		glog.Exitf("answer key: %v", err)
	}
	glog.Infof("answer key loaded: %d aptitude categories, %d units", len(key.Categories()), len(key.Units()))

	locker, closeLocker := newLocker(cfg)
	defer closeLocker()

	learners := learner.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	engine := submission.NewEngine(submission.Deps{
		Results:         quiz.NewSQLStore(dbh),
		Progress:        progress.NewSQLStore(dbh, driver),
		Locker:          locker,
		Key:             key,
		Learners:        learners,
		Events:          events,
		MaxUnits:        cfg.MaxUnits,
		UnitPassPercent: cfg.UnitPassPercent,
	})
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Local login (enabled in offline mode by default; can be enabled online via env)
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, learners))
	}

	api.Mount(r, api.Services{
		Auth:           authSvc,
		Engine:         engine,
		Learners:       learners,
		Events:         events,
		AllowClaimRole: cfg.Mode == config.ModeOffline,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Errorf("shutdown: %v", err)
		}
	}()

	glog.Infof("listening on %s (mode=%s, db=%s, max_units=%d, pass=%d%%)",
		cfg.HTTPAddr, cfg.Mode, driver, cfg.MaxUnits, cfg.UnitPassPercent)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		glog.Exitf("http: %v", err)
	}
}

// newLocker uses Redis when configured so several instances share one
// per-learner lock; otherwise the lock is in-process.
func newLocker(cfg config.Config) (progress.Locker, func()) {
	if cfg.RedisAddr == "" {
		return progress.NewMemLocker(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		glog.Exitf("redis %s: %v", cfg.RedisAddr, err)
	}
	glog.Infof("per-learner lock: redis %s (ttl %s)", cfg.RedisAddr, cfg.LockTTL)
	return progress.NewRedisLocker(client, cfg.LockTTL), func() { _ = client.Close() }
}
