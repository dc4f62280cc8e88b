package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"workpulse/internal/domain/admin"
	"workpulse/internal/domain/attendance"
	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/domain/employee"
	"workpulse/internal/domain/leave"
	"workpulse/internal/domain/payroll"
	"workpulse/internal/domain/schedule"
	"workpulse/internal/platform/config"
	cryptoutil "workpulse/internal/platform/crypto"
	"workpulse/internal/platform/db"
	"workpulse/internal/platform/metrics"
	adminhandler "workpulse/internal/transport/http/handlers/admin"
	attendancehandler "workpulse/internal/transport/http/handlers/attendance"
	authhandler "workpulse/internal/transport/http/handlers/auth"
	employeehandler "workpulse/internal/transport/http/handlers/employee"
	leavehandler "workpulse/internal/transport/http/handlers/leave"
	payrollhandler "workpulse/internal/transport/http/handlers/payroll"
	schedulehandler "workpulse/internal/transport/http/handlers/schedule"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New connects to the database, applies migrations and seed data when
// enabled, and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	collector := metrics.New()
	router, err := NewRouter(cfg, pool, collector)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &App{Config: cfg, DB: pool, Router: router, Metrics: collector}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("WorkPulse server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires every store, service and handler over q. q may be nil in
// tests that never reach a store.
func NewRouter(cfg config.Config, q db.Querier, collector *metrics.Collector) (http.Handler, error) {
	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	loc := cfg.Location()

	auditSvc := audit.New(q)
	authSvc := auth.NewService(auth.NewStore(q), crypto, cfg.JWTSecret, cfg.TokenTTL)
	employeeSvc := employee.NewService(employee.NewStore(q), crypto)
	attendanceSvc := attendance.NewService(attendance.NewStore(q), loc, cfg.WorkdayStart, cfg.LateGrace)
	leaveSvc := leave.NewService(leave.NewStore(q), loc)
	scheduleSvc := schedule.NewService(schedule.NewStore(q))
	payrollSvc := payroll.NewService(payroll.NewStore(q))
	adminSvc := admin.NewService(admin.NewStore(q), collector, loc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		p, ok := q.(pinger)
		if !ok {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authn := middleware.Authenticate(authSvc)
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(authSvc, auditSvc, cfg.AllowSelfSignup, cfg.IsProduction())
		authHandler.LogResetTokens = cfg.LogResetTokens
		authHandler.RegisterRoutes(r, authn)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			employeehandler.NewHandler(employeeSvc, auditSvc).RegisterRoutes(r)
			attendancehandler.NewHandler(attendanceSvc, auditSvc).RegisterRoutes(r)
			leavehandler.NewHandler(leaveSvc, auditSvc).RegisterRoutes(r)
			schedulehandler.NewHandler(scheduleSvc, auditSvc).RegisterRoutes(r)
			payrollhandler.NewHandler(payrollSvc, auditSvc, middleware.NewIdempotencyStore(q)).RegisterRoutes(r)
			adminhandler.NewHandler(adminSvc, auditSvc).RegisterRoutes(r)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
		})
	})

	return router, nil
}
