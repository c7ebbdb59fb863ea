// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/authz"
	"github.com/intellitrader/portal/internal/config"
	"github.com/intellitrader/portal/internal/events"
	"github.com/intellitrader/portal/internal/identity"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/notify"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/observability/metrics"
	"github.com/intellitrader/portal/internal/observability/tracing"
	"github.com/intellitrader/portal/internal/session"
	"github.com/intellitrader/portal/internal/store"
	"github.com/intellitrader/portal/internal/store/file"
	"github.com/intellitrader/portal/internal/store/postgres"
	"github.com/intellitrader/portal/internal/tenant"
	transportHTTP "github.com/intellitrader/portal/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTel:        cfg.Observability.OTELEnabled,
	})
	slog.Info("starting intellitrader portal")

	if err := run(cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
		Endpoint:       cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	httpInstruments, err := metrics.NewHTTPInstruments(meter)
	if err != nil {
		return err
	}

	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	// Initialize document store
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	st, err := store.New(backend, store.Options{
		Seed:   func() (*model.Database, error) { return store.Seed(passwordHasher, time.Now()) },
		Tracer: tracer.GetTracer(),
		Meter:  meter.GetMeter(),
	})
	if err != nil {
		return err
	}
	defer st.Close()

	auditLogger := audit.NewSlogLogger(nil)

	// Initialize services
	identityService := identity.NewService(st, passwordHasher, auditLogger)
	tenantService := tenant.NewService(st, auditLogger)

	if err := identityService.Bootstrap(ctx, identity.BootstrapAdmin{
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
		Name:     cfg.Bootstrap.AdminName,
	}); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	// Event fan-out
	bus, err := events.NewBus(meter.GetMeter())
	if err != nil {
		return err
	}
	var publisher events.Publisher = bus
	if cfg.Events.RedisRelay {
		client, err := config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		relay := events.NewRedisRelay(bus, client, cfg.Events.RelayChannel)
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("event relay stopped", logger.Error(err))
			}
		}()
		publisher = relay
		slog.Info("event relay enabled", logger.Backend("redis"))
	}

	notifier, err := notify.New(bus, notify.Options{
		Heartbeat: cfg.Events.Heartbeat,
		Buffer:    cfg.Events.StreamBuffer,
		Meter:     meter.GetMeter(),
	})
	if err != nil {
		return err
	}

	if cfg.InsecureSessionSecret() {
		slog.Warn("SESSION_SECRET is not set, using the insecure development secret")
	}
	codec := session.NewCodec(cfg.Session.Secret)

	handler := transportHTTP.NewHandler(transportHTTP.Deps{
		Store:       st,
		Identity:    identityService,
		Tenants:     tenantService,
		Resolver:    authz.NewResolver(codec, st, cfg.Session.MaxAge),
		Codec:       codec,
		Bus:         publisher,
		Notifier:    notifier,
		AuditLogger: auditLogger,
		Session: transportHTTP.SessionConfig{
			CookieName:   cfg.Session.CookieName,
			CookieDomain: cfg.Session.CookieDomain,
			CookieSecure: cfg.Session.CookieSecure,
			MaxAge:       cfg.Session.MaxAge,
		},
		StaticFS: staticFS(cfg.Server.StaticDir),
	})

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	router := transportHTTP.NewRouter(handler, rateLimiter, httpInstruments)

	// Cancelling the base context ends open event streams before Shutdown
	// waits for in-flight requests.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server", slog.Int64("open_streams", notifier.Active()))
	cancelRequests()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// openBackend selects the document backend named by the configuration.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory store, data is lost on restart", logger.Backend(config.BackendMemory))
		return store.NewMemoryBackend(), func() {}, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, postgres.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			Database:     cfg.Database.Database,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		slog.Info("connected to database", logger.Backend(config.BackendPostgres))
		return postgres.NewDocumentRepository(db, cfg.Storage.Document), db.Close, nil

	default:
		b := file.New(cfg.Storage.DataDir)
		slog.Info("using file store", logger.Backend(config.BackendFile), slog.String("path", b.Path()))
		return b, func() {}, nil
	}
}

// staticFS returns the UI bundle directory, or nil when it does not exist.
func staticFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		slog.Warn("static directory not found, page routes disabled", slog.String("dir", dir))
		return nil
	}
	return os.DirFS(dir)
}
