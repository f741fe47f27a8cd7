package bootstrap

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/cache"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/database"
	"github.com/ManuelReschke/edupay/internal/pkg/events"
	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/ManuelReschke/edupay/internal/pkg/router"
	"github.com/ManuelReschke/edupay/internal/pkg/scheduler"
)

// Services holds the process-wide wiring shared by the server and the
// renewal command.
type Services struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Gateway    bog.Gateway
	Orders     *payments.Service
	Reconciler *payments.Reconciler
	Renewer    *payments.Renewer
	Renewals   *scheduler.Manager

	closers []func() error
}

// New connects the database, the optional Redis cache and event broker, and
// builds the payment services on top of them.
func New(cfg *config.Config) (*Services, error) {
	if err := cfg.Payments.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Renewal.Validate(); err != nil {
		return nil, err
	}

	s := &Services{Config: cfg}
	s.DB = database.SetupDatabase(cfg.Database)
	metrics.Register()

	var locker scheduler.Locker
	if cfg.Cache.Enabled() {
		s.Redis = cache.SetupCache(cfg.Cache)
		s.closers = append(s.closers, cache.Close)
		locker = scheduler.NewRedisLocker(s.Redis, cfg.Renewal.LockKey, cfg.Renewal.LockExpiry)
	} else {
		log.Print("CACHE_HOST not set, renewal lock is process local")
		locker = scheduler.NewLocalLocker()
	}

	publisher, closePublisher, err := events.NewPublisher(cfg.AMQP)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	s.closers = append(s.closers, closePublisher)

	if cfg.Payments.UseMock {
		log.Print("USE_BOG_MOCK is on, payments are simulated")
		s.Gateway = bog.NewMockClient(cfg.Payments.SuccessURL)
	} else {
		s.Gateway = bog.NewClient(cfg.Payments)
	}

	repo := payments.NewRepository(s.DB)
	s.Orders = payments.NewService(repo, s.Gateway, cfg.Payments)
	s.Reconciler = payments.NewReconciler(repo, publisher, cfg.Payments.SubscriptionPeriod)
	s.Renewer = payments.NewRenewer(repo, s.Gateway, publisher, cfg.Payments)
	s.Renewals = scheduler.NewManager(s.Renewer, locker, cfg.Renewal.Schedule, cfg.Renewal.PassTimeout)
	return s, nil
}

// RouterDependencies returns what the HTTP router needs.
func (s *Services) RouterDependencies() router.Dependencies {
	return router.Dependencies{
		Config:     *s.Config,
		DB:         s.DB,
		Redis:      s.Redis,
		Repos:      repository.NewFactory(s.DB),
		Orders:     s.Orders,
		Reconciler: s.Reconciler,
		Renewals:   s.Renewals,
	}
}

// Close releases the broker and cache connections and the database pool.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
	s.closers = nil
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
