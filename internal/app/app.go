package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"libraryclient/internal/catalog"
	"libraryclient/internal/client"
	"libraryclient/internal/config"
	"libraryclient/internal/metrics"
	"libraryclient/internal/remote"
	"libraryclient/internal/remote/rest"
	"libraryclient/internal/remote/stubs"
	"libraryclient/internal/server"
	"libraryclient/internal/storage"
	"libraryclient/internal/storage/ch"
)

// App represents the application
type App struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	backend remote.Backend
	archive storage.Archive
	session *client.Session
	server  *http.Server
}

// New loads .env and the environment, then wires the application
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, logger)
}

// NewWithConfig wires the application from an explicit configuration
func NewWithConfig(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	if err := app.initBackend(); err != nil {
		return nil, err
	}
	if err := app.initArchive(); err != nil {
		return nil, err
	}

	// an explicit assertion wins over the stored one
	token := cfg.AuthToken
	if token == "" {
		stored, err := client.LoadToken(cfg.TokenFile)
		if err != nil {
			logger.Warn("Ignoring unreadable token file", zap.String("path", cfg.TokenFile), zap.Error(err))
		}
		token = stored
	}
	app.session = app.NewSession(token)

	return app, nil
}

// newLogger builds the production zap logger at the given level
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// initBackend selects the REST backend or the in-memory mock
func (a *App) initBackend() error {
	if a.config.UseMock {
		a.logger.Info("Using mock backend with demo data")
		mock := stubs.NewMockBackend()
		mock.Seed(time.Now())
		a.backend = mock
		return nil
	}

	a.logger.Info("Using library backend", zap.String("url", a.config.APIURL))
	backend, err := rest.New(a.config.APIURL, a.config.HTTPTimeout, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	a.backend = backend
	return nil
}

// initArchive connects the statistics archive when enabled
func (a *App) initArchive() error {
	if !a.config.ArchiveEnabled {
		return nil
	}

	tlsStatus := "without TLS"
	if a.config.ClickHouseUseTLS {
		tlsStatus = "with TLS"
	}
	a.logger.Info("Connecting to ClickHouse archive",
		zap.String("host", a.config.ClickHouseHost),
		zap.Int("port", a.config.ClickHousePort),
		zap.String("database", a.config.ClickHouseDatabase),
		zap.String("user", a.config.ClickHouseUser),
		zap.String("tls", tlsStatus),
	)
	db, err := ch.NewClickHouseDB(
		a.config.ClickHouseHost,
		a.config.ClickHousePort,
		a.config.ClickHouseDatabase,
		a.config.ClickHouseUser,
		a.config.ClickHousePassword,
		a.config.ClickHouseUseTLS,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := db.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	a.archive = db
	return nil
}

// NewSession creates a Session for token sharing the app's backend and archive
func (a *App) NewSession(token string) *client.Session {
	return client.NewSession(client.Options{
		Backend: a.backend,
		Archive: a.archive,
		Logger:  a.logger,
		Metrics: a.metrics,
		Projector: catalog.Projector{
			Mode:  a.config.SearchMode,
			Field: a.config.SearchField,
		},
		PageSize: a.config.PageSize,
		Token:    token,
	})
}

// Session returns the session of the configured or stored assertion
func (a *App) Session() *client.Session {
	return a.session
}

// Config returns the loaded configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// initHTTPServer creates the local API server
func (a *App) initHTTPServer() {
	hs := server.NewHTTPServer(a.NewSession, a.logger, a.metrics)

	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(a.config.Port),
		Handler:      hs.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * a.config.HTTPTimeout,
	}
}

// Serve runs the local HTTP API until ctx is done or SIGINT/SIGTERM arrives
func (a *App) Serve(ctx context.Context) error {
	a.initHTTPServer()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	return nil
}

// Close releases the archive connection and flushes the logger
func (a *App) Close() error {
	var err error
	if a.archive != nil {
		if cerr := a.archive.Close(); cerr != nil {
			a.logger.Error("Error closing archive", zap.Error(cerr))
			err = cerr
		}
	}
	_ = a.logger.Sync()
	return err
}
