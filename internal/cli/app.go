package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/config"
	"github.com/aretw0/funnel/pkg/adapters/checkout"
	"github.com/aretw0/funnel/pkg/adapters/file"
	httpadapter "github.com/aretw0/funnel/pkg/adapters/http"
	"github.com/aretw0/funnel/pkg/adapters/memory"
	redisstore "github.com/aretw0/funnel/pkg/adapters/redis"
	"github.com/aretw0/funnel/pkg/adapters/remote"
	"github.com/aretw0/funnel/pkg/adapters/sqldb"
	"github.com/aretw0/funnel/pkg/catalog"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/mirror"
	"github.com/aretw0/funnel/pkg/observability"
	"github.com/aretw0/funnel/pkg/persistence/middleware"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/aretw0/funnel/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

// App is the wired funnel: catalog, stores, remote mirror and session manager, built
// from a Config. It is shared by the serve and play commands.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Funnel  *funnel.Funnel
	Manager *session.Manager

	// Devices is the device store with the configured middlewares applied.
	Devices ports.DeviceStore

	// Sessions is the session store this process owns (memory or sql), or nil when
	// sessions are not mirrored or live on a remote instance.
	Sessions ports.SessionStore

	Registry *prometheus.Registry

	syncer  *mirror.Syncer
	closers []func() error
}

// Build wires an App from cfg. Close must be called to release the stores.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = c
	}

	hooks := observability.LoggingHooks(logger)
	if cfg.Metrics {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(app.Registry)
		if err != nil {
			return nil, err
		}
		hooks = hooks.Merge(metrics.Hooks())
	}

	devices, locker, err := app.openDevices(cfg)
	if err != nil {
		return nil, err
	}
	var mws []middleware.Middleware
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", config.EnvEncryptionKey, err)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:      key,
			AllowPlaintext: true,
		}))
	}
	app.Devices = middleware.Devices(devices, mws...)

	fOpts := []funnel.Option{
		funnel.WithCatalog(cat),
		funnel.WithLogger(logger),
		funnel.WithLifecycleHooks(hooks),
	}

	mirrored, err := app.openSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if mirrored != nil {
		if len(cfg.PIIPatterns) > 0 {
			redact, err := middleware.NewPIIMiddleware(cfg.PIIPatterns)
			if err != nil {
				return nil, err
			}
			mirrored = redact(mirrored)
		}
		app.syncer = mirror.New(mirrored,
			mirror.WithLogger(logger),
			mirror.WithLifecycleHooks(hooks),
			mirror.WithTimeout(cfg.SyncTimeout),
		)
		fOpts = append(fOpts, funnel.WithSync(app.syncer))
	}

	if cfg.CheckoutURL != "" {
		tmpl, err := checkout.NewTemplate(cfg.CheckoutURL)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", config.EnvCheckoutURL, err)
		}
		fOpts = append(fOpts, funnel.WithCheckout(tmpl))
	}

	app.Funnel = funnel.New(fOpts...)

	mOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.LockTTL),
		session.WithMaxCached(cfg.MaxCached),
	}
	if locker != nil {
		mOpts = append(mOpts, session.WithLocker(locker))
	}
	app.Manager = session.NewManager(app.Funnel, app.Devices, mOpts...)

	ok = true
	return app, nil
}

func (a *App) openDevices(cfg config.Config) (ports.DeviceStore, ports.DistributedLocker, error) {
	switch cfg.DeviceStore {
	case config.DeviceMemory:
		return memory.NewStore(), nil, nil
	case config.DeviceFile:
		return file.New(cfg.DevicesDir()), nil, nil
	case config.DeviceRedis:
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", config.EnvRedisURL, err)
		}
		client := goredis.NewClient(opts)
		store := redisstore.NewFromClient(client)
		a.closers = append(a.closers, store.Close)
		return store, redisstore.NewLocker(client, redisstore.DefaultPrefix+"lock:"), nil
	}
	return nil, nil, fmt.Errorf("unknown device store %q", cfg.DeviceStore)
}

func (a *App) openSessions(ctx context.Context, cfg config.Config) (ports.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionNone:
		return nil, nil
	case config.SessionMemory:
		store := memory.NewSessionStore()
		a.Sessions = store
		return store, nil
	case config.SessionSQL:
		store, err := sqldb.Open(ctx, cfg.SessionDSN, sqldb.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Sessions = store
		return store, nil
	case config.SessionRemote:
		return remote.New(cfg.RemoteURL, remote.WithLogger(a.Logger)), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
}

// Handler returns the HTTP API, with the session-store API and /metrics when the
// App owns them.
func (a *App) Handler() http.Handler {
	opts := []httpadapter.Option{httpadapter.WithLogger(a.Logger)}
	if a.Sessions != nil {
		opts = append(opts, httpadapter.WithSessionStore(a.Sessions))
	}
	if a.Registry != nil {
		opts = append(opts, httpadapter.WithMetricsHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}
	return httpadapter.NewHandler(a.Manager, opts...)
}

// Inspect returns every stored key of deviceID, decrypted by the device middlewares.
func (a *App) Inspect(ctx context.Context, deviceID string) (map[string]string, error) {
	local := a.Devices.Device(deviceID)
	out := make(map[string]string)
	for _, key := range domain.StorageKeys {
		v, ok, err := local.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// Close waits for in-flight remote calls and releases the stores.
func (a *App) Close() error {
	if a.syncer != nil {
		a.syncer.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
