package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	auditsvc "hrdms/internal/audit"
	"hrdms/internal/audit/dispatch"
	audithandler "hrdms/internal/audit/handler"
	auditmetrics "hrdms/internal/audit/metrics"
	"hrdms/internal/events"
	jwttoken "hrdms/internal/jwt_token"
	"hrdms/internal/platform/config"
	"hrdms/internal/platform/eventbus"
	"hrdms/internal/platform/eventbus/kafka"
	"hrdms/internal/platform/httpserver"
	"hrdms/internal/platform/logger"
	httpmetrics "hrdms/internal/platform/metrics"
	"hrdms/pkg/platform/httputil"
	"hrdms/pkg/platform/middleware/admin"
	"hrdms/pkg/platform/middleware/auth"
	"hrdms/pkg/platform/middleware/metadata"
	"hrdms/pkg/platform/middleware/request"
	"hrdms/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 15 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auditMetrics := auditmetrics.New(reg)

	be, err := openStore(ctx, cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		be.close(closeCtx, log)
	}()
	if err != nil {
		return err
	}

	service := auditsvc.New(be.store,
		auditsvc.WithLogger(log),
		auditsvc.WithMetrics(auditMetrics),
	)

	bus := eventbus.New(log,
		eventbus.WithWorkers(cfg.Audit.BusWorkers),
		eventbus.WithBuffer(cfg.Audit.BusBuffer),
		eventbus.WithDropHook(func(e events.Event) {
			auditMetrics.ObserveEvent(string(e.EventName()), auditmetrics.OutcomeDropped, 0)
		}),
	)
	dispatch.Subscribe(bus, dispatch.NewHandler(service,
		dispatch.WithLogger(log),
		dispatch.WithMetrics(auditMetrics),
	), cfg.Audit.SubscriptionsEnabled)

	var transport *kafka.Transport
	if len(cfg.Kafka.Brokers) > 0 {
		transport, err = kafka.New(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Group:   cfg.Kafka.Group,
		}, bus, bus, log)
		if err != nil {
			return err
		}
		if err := transport.EnsureTopic(ctx); err != nil {
			return err
		}
		be.checks["kafka"] = transport.Ping
		log.Info("kafka event transport enabled", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
	}
	router := newRouter(cfg, log, reg, service, be.checks)
	srv := httpserver.New(cfg.Server.Addr, router, httpserver.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting hrdms audit service", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if transport != nil {
		g.Go(func() error { return transport.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		if transport != nil {
			if err := transport.Close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := bus.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		log.Info("shutdown complete", "events_dropped", bus.Dropped())
		return errors.Join(errs...)
	})
	return g.Wait()
}

func newRouter(cfg config.Config, log *slog.Logger, reg *prometheus.Registry, service *auditsvc.Service, checks map[string]func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpmetrics.New(reg).Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, log))
		audithandler.New(service, log,
			audithandler.WithIngestMiddleware(admin.RequireAdminToken(cfg.Server.AdminToken, log)),
		).Register(r)
	})
	return r
}

// readiness reports 503 when any backend check fails.
func readiness(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
