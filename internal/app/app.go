package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/bookmarks"
	"github.com/Quranfi-Project/quranfi-web/internal/config"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/index"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/redis"
	"github.com/Quranfi-Project/quranfi-web/internal/scheduler"
	"github.com/Quranfi-Project/quranfi-web/internal/sources/backup"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
	"github.com/Quranfi-Project/quranfi-web/internal/store/memory"
	redisstore "github.com/Quranfi-Project/quranfi-web/internal/store/redis"
	"github.com/Quranfi-Project/quranfi-web/internal/store/sqlite"
	"github.com/Quranfi-Project/quranfi-web/internal/syncbus"
	"github.com/Quranfi-Project/quranfi-web/internal/utils"
	"github.com/Quranfi-Project/quranfi-web/internal/version"
)

// startupTimeout bounds opening the store (migrations included) and the bus.
const startupTimeout = time.Minute

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       store.Conn
	bus         syncbus.Bus
	refresher   *scheduler.Refresher
}

// New wires the store, the sync bus, the bookmark service and the HTTP
// server from the environment. Anything opened before a failure is closed.
func New() (*App, error) {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	a := &App{cfg: cfg, logger: loggerClient}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	if cfg.UsesRedis() {
		client, err := redis.New(ctx, redis.ConnectOptions{
			URL:            cfg.RedisURL,
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		a.logger.Info("Redis initialized successfully")
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.store = st

	bus, err := a.openBus(ctx)
	if err != nil {
		return err
	}
	a.bus = bus

	svc := bookmarks.New(st, bus, a.logger.With(logger.Component("bookmarks")))

	if cfg.ImportFile != "" {
		if err := a.importBackup(ctx, svc); err != nil {
			return err
		}
	}

	a.refresher = scheduler.NewRefresher(
		svc,
		bus,
		index.NewMemoryIndex(),
		a.logger.With(logger.Component("refresher")),
		cfg.RefreshInterval,
	)

	d := deps.Deps{
		Logger:       a.logger,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RateBurst:    cfg.RateBurst,
		RatePerMin:   cfg.RatePerMin,
		Store:        st,
		BusTransport: cfg.Bus,
		Bookmarks:    svc,
		Refresher:    a.refresher,
	}

	a.server = httpserver.New(cfg.ListenAddr, a.logger, d)
	return nil
}

func (a *App) openStore(ctx context.Context) (store.Conn, error) {
	cfg := a.cfg
	switch cfg.StoreBackend {
	case config.BackendRedis:
		st, err := redisstore.Open(ctx, a.redisClient, redisstore.Options{Name: cfg.StoreName}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return st, nil
	case config.BackendMemory:
		a.logger.Warn("memory store selected, bookmarks are lost on exit")
		return memory.New(), nil
	default:
		st, err := sqlite.Open(ctx, sqlite.Options{Dir: cfg.DataDir, Name: cfg.StoreName}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.logger.Info("sqlite store opened", logger.String("path", st.Path()))
		return st, nil
	}
}

func (a *App) openBus(ctx context.Context) (syncbus.Bus, error) {
	cfg := a.cfg
	busLogger := a.logger.With(logger.Component("syncbus"), logger.String("transport", cfg.Bus))

	switch cfg.Bus {
	case config.BusRedis:
		bus, err := syncbus.NewRedisBus(ctx, a.redisClient, redisstore.EventsChannel(cfg.StoreName), busLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to start redis bus: %w", err)
		}
		return bus, nil
	case config.BusLocal:
		return syncbus.NewHub().Endpoint(), nil
	default:
		bus, err := syncbus.NewFileBus(syncbus.FileOptions{
			Dir:          cfg.SignalDir,
			Debounce:     cfg.BusDebounce,
			PollInterval: cfg.BusPollInterval,
		}, busLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to start file bus: %w", err)
		}
		return bus, nil
	}
}

func (a *App) importBackup(ctx context.Context, svc *bookmarks.Service) error {
	file, err := backup.NewLoader(a.cfg.ImportFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}
	verses, pages, err := backup.NewMapper(nil).ToDomain(file)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", a.cfg.ImportFile, err)
	}
	res, err := svc.Import(ctx, verses, pages)
	if err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}
	a.logger.Info("📥 backup imported",
		logger.String("file", a.cfg.ImportFile),
		logger.Int("verses", res.Verses),
		logger.Int("pages", res.Pages))
	return nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting quranfi %s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.refresher.Start(ctx)
	a.logger.Info("refresher started",
		logger.String("store", a.store.Backend()),
		logger.String("bus", a.cfg.Bus),
		logger.Duration("interval", a.cfg.RefreshInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.close()
	if runErr == nil {
		a.logger.Info("✅ quranfi stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}

// close releases the bus, the store and the redis client, in that order.
func (a *App) close() {
	if a.bus != nil {
		utils.CloseLogged(a.bus, "sync bus", a.logger)
	}
	if a.store != nil {
		utils.CloseLogged(a.store, "store", a.logger)
	}
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "Redis", a.logger)
	}
}
