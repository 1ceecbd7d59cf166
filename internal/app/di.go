// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/finsec/keyguard/internal/config"
	cryptoHTTP "github.com/finsec/keyguard/internal/crypto/http"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	"github.com/finsec/keyguard/internal/database"
	"github.com/finsec/keyguard/internal/http"
	keysHTTP "github.com/finsec/keyguard/internal/keys/http"
	keysRepository "github.com/finsec/keyguard/internal/keys/repository"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
	kmsService "github.com/finsec/keyguard/internal/kms/service"
	"github.com/finsec/keyguard/internal/metrics"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// KMS
	kmsProvider kmsService.Provider

	// Repositories
	keyRepo keysUsecase.KeyRepository

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Use cases and services
	keyManager        keysUsecase.KeyManager
	encryptionService cryptoService.EncryptionService

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	kmsProviderInit       sync.Once
	keyRepoInit           sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	keyManagerInit        sync.Once
	encryptionServiceInit sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection. The database is only used when the key
// registry runs on the "sql" repository.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager. The in-memory key registry gets
// a no-op manager; the SQL registry gets one bound to the database.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		txManager, err := c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = txManager
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// KMSProvider returns the configured KMS provider.
func (c *Container) KMSProvider() (kmsService.Provider, error) {
	c.kmsProviderInit.Do(func() {
		provider, err := c.initKMSProvider()
		if err != nil {
			c.initErrors["kmsProvider"] = err
			return
		}
		c.kmsProvider = provider
	})
	if storedErr, exists := c.initErrors["kmsProvider"]; exists {
		return nil, storedErr
	}
	return c.kmsProvider, nil
}

// KeyRepository returns the key registry repository instance.
func (c *Container) KeyRepository() (keysUsecase.KeyRepository, error) {
	c.keyRepoInit.Do(func() {
		repo, err := c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepo"] = err
			return
		}
		c.keyRepo = repo
	})
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		businessMetrics, err := c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// KeyManager returns the key lifecycle manager.
func (c *Container) KeyManager() (keysUsecase.KeyManager, error) {
	c.keyManagerInit.Do(func() {
		manager, err := c.initKeyManager()
		if err != nil {
			c.initErrors["keyManager"] = err
			return
		}
		c.keyManager = manager
	})
	if storedErr, exists := c.initErrors["keyManager"]; exists {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// EncryptionService returns the envelope encryption service.
func (c *Container) EncryptionService() (cryptoService.EncryptionService, error) {
	c.encryptionServiceInit.Do(func() {
		service, err := c.initEncryptionService()
		if err != nil {
			c.initErrors["encryptionService"] = err
			return
		}
		c.encryptionService = service
	})
	if storedErr, exists := c.initErrors["encryptionService"]; exists {
		return nil, storedErr
	}
	return c.encryptionService, nil
}

// HTTPServer returns the API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		server, err := c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = server
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// KMS providers hold key material or remote keeper connections.
	switch closer := c.kmsProvider.(type) {
	case interface{ Close() error }:
		if err := closer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kms provider close: %w", err))
		}
	case interface{ Close() }:
		closer.Close()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager.
func (c *Container) initTxManager() (database.TxManager, error) {
	if c.config.KeyRepository == "memory" {
		return database.NoopTxManager{}, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initKMSProvider creates the KMS provider based on configuration.
func (c *Container) initKMSProvider() (kmsService.Provider, error) {
	switch c.config.KMSProvider {
	case "memory":
		return kmsService.NewMemoryProvider(), nil
	case "gocloud":
		provider, err := kmsService.NewStaticKeyProvider(kmsService.NewKeeperProvider(), c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to create gocloud kms provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported kms provider: %s", c.config.KMSProvider)
	}
}

// initKeyRepository creates the key registry repository instance.
func (c *Container) initKeyRepository() (keysUsecase.KeyRepository, error) {
	if c.config.KeyRepository == "memory" {
		return keysRepository.NewMemoryKeyRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return keysRepository.NewMySQLKeyRepository(db), nil
	case "postgres":
		return keysRepository.NewPostgreSQLKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initKeyManager creates the key lifecycle manager with all its dependencies.
func (c *Container) initKeyManager() (keysUsecase.KeyManager, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key manager: %w", err)
	}

	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key manager: %w", err)
	}

	kmsProvider, err := c.KMSProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms provider for key manager: %w", err)
	}

	rotationInterval := time.Duration(c.config.KeyRotationIntervalDays) * 24 * time.Hour
	manager := keysUsecase.NewKeyUseCase(txManager, keyRepo, kmsProvider, rotationInterval, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key manager: %w", err)
		}
		manager = keysUsecase.NewKeyManagerWithMetrics(manager, businessMetrics)
	}

	return manager, nil
}

// initEncryptionService creates the envelope encryption service.
func (c *Container) initEncryptionService() (cryptoService.EncryptionService, error) {
	kmsProvider, err := c.KMSProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms provider for encryption service: %w", err)
	}

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for encryption service: %w", err)
	}

	return cryptoService.NewEncryptionService(
		kmsProvider,
		cryptoService.NewAEADManager(),
		keyManager,
		keyManager,
	), nil
}

// initHTTPServer creates the API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for http server: %w", err)
	}

	encryptionService, err := c.EncryptionService()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption service for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	// The readiness probe only checks the database when one is in use.
	var db *sql.DB
	if c.config.KeyRepository != "memory" {
		db, err = c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for http server: %w", err)
		}
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(http.RouterConfig{
		KeyHandler:       keysHTTP.NewKeyHandler(keyManager, logger),
		CryptoHandler:    cryptoHTTP.NewCryptoHandler(encryptionService, logger),
		MetricsProvider:  metricsProvider,
		MetricsNamespace: c.config.MetricsNamespace,
		RateLimitEnabled: c.config.RateLimitEnabled,
		RateLimitRPS:     c.config.RateLimitRequestsPerSec,
		RateLimitBurst:   c.config.RateLimitBurst,
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
	})

	return server, nil
}

// initMetricsServer creates the metrics server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
