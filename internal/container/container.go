package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/category"
	"ugc/exporter/internal/client"
	"ugc/exporter/internal/config"
	"ugc/exporter/internal/feed"
	"ugc/exporter/internal/proxy"
	"ugc/exporter/internal/queue"
	"ugc/exporter/internal/repository"
	"ugc/exporter/internal/service"
	"ugc/exporter/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Client       client.Client
	Repository   repository.CatalogRepository
	Queue        queue.Queue
	StateManager state.StateManager
	Categories   *category.Manager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier, err := proxy.NewSupplier(ctx, cfg.Service.Proxies, cfg.Service.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	db, err := pgxpool.New(ctx,
		fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
		))
	if err != nil {
		return nil, err
	}
	container.db = db

	catalogRepo := repository.NewCatalogRepository(db)
	container.Repository = catalogRepo

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	container.redis = rdb

	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(rdb, cfg.Redis)
	if err != nil {
		return nil, err
	}
	container.Queue = redisQueue

	stateManager := state.NewRedisStateManager(rdb)
	container.StateManager = stateManager

	ugcClient := client.NewClient(cfg.Service, proxySupplier)
	container.Client = ugcClient

	// The category tree is loaded once per process and serves as the
	// host-catalog view the index manager walks.
	rows, err := catalogRepo.LoadCategoryRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}
	tree := catalog.BuildTree(rows)
	log.Infof("✅ Loaded category tree with %d categories", len(rows))

	categories := category.NewManager(tree, cfg.Category)
	container.Categories = categories

	assembler := feed.NewAssembler(categories)

	service := service.NewService(
		catalogRepo,
		ugcClient,
		redisQueue,
		stateManager,
		categories,
		assembler,
		cfg.Export,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)
	container.Service = service

	return container, nil
}

// Run executes the feed export alongside the event-forwarding workers
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.RunExport(ctx)
	})

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Export.MaxWorkers)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	c.db.Close()
	if err := c.redis.Close(); err != nil {
		return err
	}

	log.Info("Container shut down successfully")
	return nil
}
