/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer-ddd/utils"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// Factory builds a Manager from configuration and bootstraps the database.
type Factory struct {
	manager  Manager
	config   *ConnectionConfig
	logger   Logger
	registry ModelRegistry
	metrics  prometheus.Registerer
}

type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger handed to the managers the factory creates.
func WithFactoryLogger(logger Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithModelRegistry replaces the process wide model registry.
func WithModelRegistry(registry ModelRegistry) FactoryOption {
	return func(f *Factory) { f.registry = registry }
}

// WithMetricsRegisterer is where query and pool metrics are registered when
// enabled in the configuration. The default is prometheus.DefaultRegisterer.
func WithMetricsRegisterer(reg prometheus.Registerer) FactoryOption {
	return func(f *Factory) { f.metrics = reg }
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		logger:   NewDefaultLogger(),
		registry: RegisteredModels(),
		metrics:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateFromConfig validates cfg, applies environment overrides and creates
// the manager. It does not connect.
func (f *Factory) CreateFromConfig(cfg *ConnectionConfig) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	overrideFromEnv(cfg)
	if !slices.Contains(supportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}

	opts := []ManagerOption{WithManagerLogger(f.logger)}
	if cfg.EnableMetrics {
		hook, err := NewMetricsHook(f.metrics, cfg.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		opts = append(opts, WithQueryHooks(hook))
	}

	f.config = cfg
	f.manager = NewDatabaseManager(cfg, opts...)
	return f.manager, nil
}

// overrideFromEnv lets DB_* environment variables win over file settings.
func overrideFromEnv(cfg *ConnectionConfig) {
	envString("DB_TYPE", &cfg.Type)
	envString("DB_HOST", &cfg.Host)
	envInt("DB_PORT", &cfg.Port)
	envString("DB_USERNAME", &cfg.Username)
	envString("DB_PASSWORD", &cfg.Password)
	envString("DB_NAME", &cfg.DBName)
	envString("DB_SSLMODE", &cfg.SSLMode)
	envInt("DB_MAX_IDLE_CONNS", &cfg.MaxIdleConns)
	envInt("DB_MAX_OPEN_CONNS", &cfg.MaxOpenConns)
	envDuration("DB_CONN_MAX_LIFETIME", &cfg.ConnMaxLifetime)
	envBool("DB_ENABLE_RECONNECT", &cfg.EnableReconnect)
	envDuration("DB_RECONNECT_INTERVAL", &cfg.ReconnectInterval)
	envBool("DB_ENABLE_QUERY_LOG", &cfg.EnableQueryLog)
	envBool("DB_ENABLE_METRICS", &cfg.EnableMetrics)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	*dst = utils.EnvDuration(key, *dst)
}

func envBool(key string, dst *bool) {
	*dst = utils.EnvDefaultBool(key, *dst)
}

// Initialize connects, registers the models with Bun and, when createTables
// is set, creates their tables.
func (f *Factory) Initialize(ctx context.Context, createTables bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db := f.manager.GetDB()
	models := f.registry.Instances()
	db.RegisterModel(models...)
	if f.config.EnableMetrics {
		if err := RegisterPoolMetrics(f.metrics, f.manager.GetSQLDB, f.config.DBName); err != nil {
			f.logger.Warn("Failed to register pool metrics", "error", err)
		}
	}
	if createTables {
		if err := CreateTables(ctx, db, models...); err != nil {
			return err
		}
	}
	f.logger.Info("Database initialization completed", "models", len(models))
	return nil
}

// Open is the usual bootstrap: create the manager from cfg and initialize it.
func Open(ctx context.Context, cfg *Config, opts ...FactoryOption) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f := NewFactory(opts...)
	if _, err := f.CreateFromConfig(&cfg.Connection); err != nil {
		return nil, err
	}
	if err := f.Initialize(ctx, cfg.CreateTables); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (f *Factory) GetManager() Manager {
	return f.manager
}

// GetDB returns the Bun database, or nil before Initialize.
func (f *Factory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *Factory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *Factory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *Factory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
