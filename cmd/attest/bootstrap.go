package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/attest-ml/go-attest/infrastructure/cache"
	"github.com/attest-ml/go-attest/infrastructure/calibration"
	"github.com/attest-ml/go-attest/infrastructure/evalmetrics"
	"github.com/attest-ml/go-attest/infrastructure/storage"
	"github.com/attest-ml/go-attest/internal/application"
	"github.com/attest-ml/go-attest/internal/ports"
)

// loadConfig reads the config file named by --config, or returns the
// defaults when the flag is unset.
func loadConfig() (application.EngineConfig, error) {
	if configPath == "" {
		return application.DefaultEngineConfig(), nil
	}
	loader, err := application.NewConfigLoader()
	if err != nil {
		return application.EngineConfig{}, err
	}
	return loader.LoadFromFile(configPath)
}

// buildLogger constructs the zap logger per the logging section.
func buildLogger(cfg application.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// buildCache selects the snapshot cache backend.
func buildCache(cfg application.CacheConfig) (ports.CacheStore, error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedis(rdb, cfg.Namespace), nil
	case "memory", "":
		return cache.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// historyServices opens the history database and builds the
// calibration and snapshot services shared by all subcommands.
func historyServices(
	cfg application.EngineConfig,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*gorm.DB, *application.CalibrationService, *application.SnapshotService, error) {
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	calStore := storage.NewCalibrationStore(db)
	calibrator, err := calibration.NewCalibrator(cfg.Calibration, calStore, logger, metrics)
	if err != nil {
		return nil, nil, nil, err
	}
	calService, err := application.NewCalibrationService(calStore, calibrator, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	snapCache, err := buildCache(cfg.Cache)
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := evalmetrics.NewEngine(cfg.Metrics.Engine)
	if err != nil {
		return nil, nil, nil, err
	}
	ttl := parseTTL(cfg.Metrics.SnapshotTTL)
	snapService, err := application.NewSnapshotService(
		storage.NewInspectionStore(db), snapCache, engine, ttl, logger, metrics)
	if err != nil {
		return nil, nil, nil, err
	}

	return db, calService, snapService, nil
}

func parseTTL(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
