package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/JeanGrijp/go-csrfguard/csrf"
	"github.com/JeanGrijp/go-csrfguard/internal/config"
	"github.com/JeanGrijp/go-csrfguard/internal/logging"
	"github.com/JeanGrijp/go-csrfguard/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json, toml)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	backend, closeBackend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := newApp(cfg, backend, logger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("session_backend", cfg.Session.Backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Backend, func(), error) {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryBackend(cfg.Session.MemorySize, cfg.Session.Lifetime), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	b := session.NewRedisBackend(client, logger)
	if err := b.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	return b, func() { _ = client.Close() }, nil
}

var formTmpl = template.Must(template.New("form").Parse(`<!doctype html>
<form method="post" action="/transfer">
  <input type="hidden" name="_token" value="{{.}}">
  <input name="amount">
  <button>Send</button>
</form>
`))

// newApp builds the demo router. Pages run behind session loading and
// csrf.Protect; /transfer checks the token itself unless csrf_enforce is set.
func newApp(cfg *config.Config, backend session.Backend, logger *zap.Logger, reg *prometheus.Registry) (http.Handler, error) {
	csrfCfg, err := csrf.ConfigFromMap(cfg.CSRF)
	if err != nil {
		return nil, err
	}
	csrfCfg.Logger = logger
	csrfCfg.Registerer = reg
	g := csrf.New(csrfCfg)

	sm := session.NewManager(backend, session.Options{
		CookieSecure: cfg.Session.CookieSecure,
		Lifetime:     cfg.Session.Lifetime,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Logger:       logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(sm.Middleware)
		r.Use(g.Protect)
		if cfg.CSRFEnforce {
			r.Use(g.Enforce)
		}

		r.Get("/csrf-token", g.TokenHandler().ServeHTTP)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			tok, _ := csrf.TokenFromContext(r.Context())
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := formTmpl.Execute(w, tok); err != nil {
				logger.Error("render form", zap.Error(err))
			}
		})

		r.Post("/transfer", func(w http.ResponseWriter, r *http.Request) {
			v, _ := csrf.FromContext(r.Context())
			if !v.VerifyRequest(r) {
				logger.Info("transfer rejected", zap.String("request_id", middleware.GetReqID(r.Context())))
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("ok"))
		})

		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			if s, ok := session.FromContext(r.Context()); ok {
				_ = s.Destroy()
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r, nil
}
