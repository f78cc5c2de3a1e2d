package di

import (
	"errors"
	"fmt"

	"user-crud-service/cmd/api/infrastructure"
	"user-crud-service/internal/adapter/db/gormdb"
	"user-crud-service/internal/adapter/db/memory"
	ginhandler "user-crud-service/internal/adapter/gin/handler"
	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/internal/adapter/grpc/middleware"
	"user-crud-service/internal/config"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/ratelimit"
	redisclient "user-crud-service/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the repository the container hands to the use case.
type Store interface {
	user.Repository
	grpcadapter.Pinger
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB // nil with the memory driver
	RedisClient *redisclient.Client
	Store       Store
	UserUC      user.UserUsecase
	Limiter     ratelimit.Limiter // nil when rate limiting is disabled
	LocalLimit  *ratelimit.LocalLimiter
	RateLimiter *middleware.RateLimiter
	Health      *grpcadapter.HealthReporter
	Registry    *prometheus.Registry
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: l,
	}

	// Initialize store
	if cfg.DB.Driver == config.DriverMemory {
		c.Store = memory.NewUserRepo(l)
	} else {
		db, err := infrastructure.NewDatabase(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		c.Store = gormdb.NewUserRepo(db, l)
	}

	// Initialize rate limiter
	if cfg.RateLimit.Enabled {
		limitCfg := ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
		}
		if cfg.Redis.Enabled {
			rdb, err := infrastructure.NewRedisClient(cfg, l)
			if err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("failed to initialize Redis: %w", err)
			}
			c.RedisClient = rdb
			c.Limiter = ratelimit.NewRedisLimiter(rdb.Client, limitCfg)
		} else {
			c.LocalLimit = ratelimit.NewLocalLimiter(limitCfg)
			c.Limiter = c.LocalLimit
		}
	}
	c.RateLimiter = middleware.NewRateLimiter(c.Limiter, l)

	// Initialize use case
	c.UserUC = user.New(c.Store, l)

	// Initialize Gin handler
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	c.Health = grpcadapter.NewHealthReporter(c.Store, cfg.Logger.ServiceName, l)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
