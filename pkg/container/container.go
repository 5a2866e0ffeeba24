package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/queue"
	"library-backend/pkg/cache"
	"library-backend/pkg/jwt"
	"library-backend/pkg/lock"
	"library-backend/pkg/logger"

	accountHandler "library-backend/internal/domains/account/handler"
	accountRepo "library-backend/internal/domains/account/repository"
	accountService "library-backend/internal/domains/account/service"
	bookHandler "library-backend/internal/domains/book/handler"
	bookRepo "library-backend/internal/domains/book/repository"
	bookService "library-backend/internal/domains/book/service"
	circulationHandler "library-backend/internal/domains/circulation/handler"
	circulationRepo "library-backend/internal/domains/circulation/repository"
	circulationService "library-backend/internal/domains/circulation/service"
	memberHandler "library-backend/internal/domains/member/handler"
	memberRepo "library-backend/internal/domains/member/repository"
	memberService "library-backend/internal/domains/member/service"
	reservationHandler "library-backend/internal/domains/reservation/handler"
	reservationRepo "library-backend/internal/domains/reservation/repository"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton for the lifetime of the process.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config     *config.Config
	DB         *database.PostgresDB // nil when STORAGE_BACKEND=memory
	Redis      *infraCache.RedisClient
	Cache      cache.Cache
	Locker     lock.Locker
	Queue      *asynq.Client // nil when Redis is unreachable
	JWTManager *jwt.Manager

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	BookRepo        bookRepo.RepositoryInterface
	MemberRepo      memberRepo.RepositoryInterface
	LedgerRepo      circulationRepo.LedgerInterface
	ReservationRepo reservationRepo.RepositoryInterface
	AccountRepo     accountRepo.RepositoryInterface

	// ========================================
	// SERVICE LAYER
	// ========================================
	BookService        bookService.ServiceInterface
	MemberService      memberService.ServiceInterface
	CirculationService circulationService.ServiceInterface
	AccountService     accountService.ServiceInterface

	// ========================================
	// HANDLER LAYER
	// ========================================
	BookHandler        *bookHandler.Handler
	MemberHandler      *memberHandler.Handler
	CirculationHandler *circulationHandler.Handler
	ReservationHandler *reservationHandler.Handler
	AccountHandler     *accountHandler.Handler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	logger.Info("config loaded", map[string]interface{}{
		"environment": cfg.App.Environment,
		"storage":     cfg.Database.Storage,
		"lock":        cfg.Lock.Backend,
	})

	// ========================================
	// STEP 2: INITIALIZE INFRASTRUCTURE
	// ========================================
	if err := c.initDatabase(); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initRedis(); err != nil {
		c.Cleanup()
		return nil, err
	}
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// ========================================
	// STEP 3: INITIALIZE REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 4: INITIALIZE SERVICES
	// ========================================
	c.initServices()

	// ========================================
	// STEP 5: INITIALIZE HANDLERS
	// ========================================
	c.BookHandler = bookHandler.NewHandler(c.BookService)
	c.MemberHandler = memberHandler.NewHandler(c.MemberService)
	c.CirculationHandler = circulationHandler.NewHandler(c.CirculationService)
	c.ReservationHandler = reservationHandler.NewHandler(c.CirculationService)
	c.AccountHandler = accountHandler.NewHandler(c.AccountService)

	logger.Info("container initialized", nil)
	return c, nil
}

func (c *Container) initDatabase() error {
	if c.Config.Database.Storage != "postgres" {
		logger.Warn("using in-memory storage, data is lost on restart", nil)
		return nil
	}

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	c.DB = db

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// initRedis wires the cache, the locker and the task client. A missing
// Redis only degrades caching and background sync, unless the lock backend
// depends on it.
func (c *Container) initRedis() error {
	cfg := c.Config
	client := infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		if cfg.Lock.Backend == "redis" {
			return fmt.Errorf("LOCK_BACKEND=redis but redis is unreachable: %w", err)
		}
		logger.Warn("redis unavailable, falling back to in-process cache", map[string]interface{}{
			"error": err.Error(),
		})
		c.Cache = infraCache.NewMemoryCache()
		c.Locker = lock.NewKeyedMutex()
		return nil
	}

	c.Redis = client
	c.Cache = infraCache.NewRedisCache(client.Client)
	c.Queue = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if cfg.Lock.Backend == "redis" {
		c.Locker = lock.NewRedisLocker(client.Client, lock.WithTTL(cfg.Lock.TTL))
	} else {
		c.Locker = lock.NewKeyedMutex()
	}
	return nil
}

func (c *Container) initRepositories() {
	if c.DB != nil {
		pool := c.DB.Pool
		c.BookRepo = bookRepo.NewPostgresRepository(pool)
		c.MemberRepo = memberRepo.NewPostgresRepository(pool)
		c.LedgerRepo = circulationRepo.NewPostgresLedger(pool)
		c.ReservationRepo = reservationRepo.NewPostgresRepository(pool)
		c.AccountRepo = accountRepo.NewPostgresRepository(pool)
		return
	}

	members := memberRepo.NewMemoryRepository()
	c.BookRepo = bookRepo.NewMemoryRepository()
	c.MemberRepo = members
	c.LedgerRepo = circulationRepo.NewMemoryLedger()
	c.ReservationRepo = reservationRepo.NewMemoryRepository()
	c.AccountRepo = accountRepo.NewMemoryRepository(members)
}

func (c *Container) initServices() {
	cfg := c.Config

	// A nil *asynq.Client must not reach the publisher as a non-nil interface
	var enqueuer queue.Enqueuer
	if c.Queue != nil {
		enqueuer = c.Queue
	}
	publisher := queue.NewAvailabilityPublisher(enqueuer, c.Cache)

	c.BookService = bookService.NewService(
		c.BookRepo,
		c.LedgerRepo,
		c.ReservationRepo,
		c.Locker,
		cfg.Lock.Timeout,
		bookService.WithCache(c.Cache),
		bookService.WithPublisher(publisher),
	)

	members := memberService.NewService(
		c.MemberRepo,
		c.LedgerRepo,
		c.ReservationRepo,
		c.Locker,
		cfg.Lock.Timeout,
	)
	c.MemberService = members

	c.CirculationService = circulationService.NewService(
		c.BookRepo,
		c.MemberRepo,
		members,
		c.LedgerRepo,
		c.ReservationRepo,
		c.Locker,
		circulationService.Config{
			LoanPeriod:  cfg.Circulation.LoanPeriod,
			LockTimeout: cfg.Lock.Timeout,
			RecentLimit: cfg.Circulation.RecentLimit,
		},
		circulationService.WithPublisher(publisher),
	)

	c.AccountService = accountService.NewService(c.AccountRepo, c.MemberRepo, c.JWTManager)
}

// ========================================
// HEALTH
// ========================================

// Health pings every configured backing service. healthy is false when any
// of them fails.
func (c *Container) Health(ctx context.Context) (status map[string]string, healthy bool) {
	status = map[string]string{"database": "memory", "redis": "disconnected"}
	healthy = true

	if c.DB != nil {
		status["database"] = "ok"
		if err := c.DB.Ping(ctx); err != nil {
			status["database"] = fmt.Sprintf("error: %v", err)
			healthy = false
		}
	}
	if c.Redis != nil {
		status["redis"] = "ok"
		if err := c.Cache.Ping(ctx); err != nil {
			status["redis"] = fmt.Sprintf("error: %v", err)
			healthy = false
		}
	}
	return status, healthy
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases connections in reverse order of creation
func (c *Container) Cleanup() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			logger.Error("failed to close task client", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}
}
