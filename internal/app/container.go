// Package app wires together the scheduling solver, its persistence layer,
// and the ambient infrastructure (database, cache, message broker) behind a
// single Container, the same "one struct holds every wired dependency"
// shape the CLI entry point expects.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	sharedApplication "github.com/kilgorjn/patient-scheduling/internal/shared/application"
	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database"
	_ "github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database/postgres" // registers the postgres driver
	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database/sqlite"
	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/eventbus"
	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/migrations"
	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/outbox"
	"github.com/kilgorjn/patient-scheduling/internal/solver"
	"github.com/kilgorjn/patient-scheduling/internal/solver/audit"
	"github.com/kilgorjn/patient-scheduling/internal/solver/cache"
	solverdomain "github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/notify"
	"github.com/kilgorjn/patient-scheduling/pkg/config"
	"github.com/kilgorjn/patient-scheduling/pkg/observability"
)

// Container holds every wired dependency the CLI needs to serve a solve
// request, persist its audit trail, and relay the outcome to the outbox.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DBConn database.Connection

	RedisClient *redis.Client

	EventPublisher eventbus.Publisher
	UnitOfWork     sharedApplication.UnitOfWork

	OutboxRepo      outbox.Repository
	OutboxProcessor *outbox.Processor

	AuditRepo audit.Repository
	Notifier  *notify.Notifier

	ResultCache *cache.Cache
	Engine      *solver.Engine
	Metrics     observability.Metrics
}

// NewContainer wires a full container against PostgreSQL, Redis, and
// RabbitMQ. Redis and RabbitMQ are optional in development: their absence
// degrades the cache and event publishing paths instead of failing startup.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:   database.DriverPostgres,
		URL:      cfg.DatabaseURL,
		MaxConns: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	logger.Info("connected to database", "driver", "postgres")

	c.UnitOfWork = database.NewUnitOfWork(conn)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				conn.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, result cache disabled", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					conn.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, result cache disabled", "error", err)
			} else {
				c.RedisClient = redisClient
				logger.Info("connected to Redis")
			}
		}
	}
	if c.RedisClient != nil && cfg.CacheEnabled {
		c.ResultCache = cache.New(c.RedisClient, cfg.CacheTTL)
	}

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher")
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			conn.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		c.EventPublisher = publisher
	}

	c.OutboxRepo = outbox.NewSQLRepository(conn)
	if cfg.OutboxProcessorEnabled {
		processorConfig := outbox.ProcessorConfig{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxRetries:   cfg.OutboxMaxRetries,
		}
		c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger)
	}

	c.AuditRepo = audit.NewSQLRepository(conn)

	notifier, err := notify.NewNotifier(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Warn("solve-completed notifier unavailable", "error", err)
	} else {
		c.Notifier = notifier
	}

	c.Engine = solver.New(logger, solver.BreakerConfig{
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
	})
	c.Metrics = observability.NewInMemoryMetrics()
	c.Engine.SetMetrics(c.Metrics)

	return c, nil
}

// NewLocalContainer wires a container against SQLite with no external
// services: no Redis cache, no RabbitMQ (events go nowhere since there is
// nothing to publish to locally), no NOTIFY channel (SQLite has none).
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	conn, err := initSQLiteConnection(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}
	c.DBConn = conn

	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.EventPublisher = eventbus.NewNoopPublisher(logger)
	c.OutboxRepo = outbox.NewSQLRepository(conn)
	c.AuditRepo = audit.NewSQLRepository(conn)

	c.Engine = solver.New(logger, solver.BreakerConfig{
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
	})
	c.Metrics = observability.NewInMemoryMetrics()
	c.Engine.SetMetrics(c.Metrics)

	logger.Info("local mode container initialized", "database", cfg.SQLitePath, "driver", "sqlite")
	return c, nil
}

// Close releases every resource the container opened.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}
	if c.Notifier != nil {
		if err := c.Notifier.Close(); err != nil {
			c.Logger.Warn("error closing solve-completed notifier", "error", err)
		}
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		}
	}
}

func initSQLiteConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlite.Connection, error) {
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite connection: %w", err)
	}

	sqliteConn, ok := conn.(*sqlite.Connection)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("expected *sqlite.Connection, got %T", conn)
	}

	logger.Info("running SQLite migrations")
	if err := migrations.RunSQLiteMigrations(ctx, sqliteConn.DB()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("SQLite migrations completed successfully")

	return sqliteConn, nil
}

// RecordRun persists the audit row for a completed solve and, in the same
// transaction, enqueues a ScheduleSolved event onto the outbox for OPTIMAL
// and FEASIBLE solves. The audit insert and the outbox insert share one
// transaction via UnitOfWork so a crash between the two can never leave a
// recorded run with no corresponding event, or an event with no run behind
// it. For PostgreSQL deployments it also publishes a solve_completed
// notification once that transaction has committed.
func (c *Container) RecordRun(ctx context.Context, run *audit.Run) error {
	err := sharedApplication.WithUnitOfWork(ctx, c.UnitOfWork, func(txCtx context.Context) error {
		if err := c.AuditRepo.Save(txCtx, run); err != nil {
			return err
		}

		if run.Status != solverdomain.StatusOptimal && run.Status != solverdomain.StatusFeasible {
			return nil
		}

		msg, err := outbox.NewMessage(audit.NewScheduleSolved(run))
		if err != nil {
			return fmt.Errorf("failed to build schedule_solved event: %w", err)
		}
		return c.OutboxRepo.Save(txCtx, msg)
	})
	if err != nil {
		return err
	}

	if c.Notifier != nil {
		if err := notify.Publish(ctx, c.DBConn, run); err != nil {
			c.Logger.Warn("failed to publish solve_completed notification", "error", err)
		}
	}
	return nil
}
