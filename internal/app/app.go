// Package app assembles the lifecycle engine from configuration. cmd/api and
// cmd/opsctl share it so both run the same wiring.
//
// Pebble holds an exclusive lock on its directory, so only one process opens
// the artifact store. Processes opened WithoutArtifacts always schedule
// delivery through Kafka.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/ariefcatur/go-digital-orders/internal/artifacts"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/ariefcatur/go-digital-orders/internal/config"
	"github.com/ariefcatur/go-digital-orders/internal/delivery"
	kafkax "github.com/ariefcatur/go-digital-orders/internal/kafka"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/ariefcatur/go-digital-orders/internal/obs"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/payments"
	"github.com/ariefcatur/go-digital-orders/internal/postgres"
	"github.com/ariefcatur/go-digital-orders/internal/redisx"
	"github.com/ariefcatur/go-digital-orders/internal/render"
	"github.com/ariefcatur/go-digital-orders/internal/settings"
	"github.com/ariefcatur/go-digital-orders/internal/users"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Config config.Config

	DB       *pgxpool.Pool
	Redis    *redis.Client
	Producer *kafkax.Producer
	Metrics  *metrics.Registry

	Audit       *audit.Repo
	Catalog     *catalog.Repo
	Purchases   *orders.Repo
	Settings    *settings.Repo
	Artifacts   *artifacts.PebbleStore
	StatusCache redisx.StatusCache

	Ledger       *orders.Ledger
	Reconciler   *payments.Reconciler
	Orchestrator *delivery.Orchestrator
	Scheduler    *delivery.Scheduler
	Dispatcher   *notify.Dispatcher

	cancel   context.CancelFunc
	shutdown func(context.Context) error
}

type options struct {
	noArtifacts bool
}

type Option func(*options)

// WithoutArtifacts skips the artifact store. Orchestrator is nil and every
// delivery goes through delivery.requested.
func WithoutArtifacts() Option {
	return func(o *options) { o.noArtifacts = true }
}

// Open connects every backing service and builds the components. Close
// releases them in reverse order.
func Open(ctx context.Context, cfg config.Config, producerName string, opts ...Option) (*Deps, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	shutdown, err := obs.InitTracer(ctx, producerName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var arts *artifacts.PebbleStore
	if !o.noArtifacts {
		arts, err = artifacts.Open(cfg.ArtifactDir)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	rdb := redisx.New(cfg.RedisAddr)

	pctx, cancel := context.WithCancel(context.Background())
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.OnError = kafkax.AuditFailures(&audit.Repo{DB: db})
	prod.Start(pctx)

	d := &Deps{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Producer: prod,
		Metrics:  metrics.NewRegistry(),
		cancel:   cancel,
		shutdown: shutdown,
	}
	d.build(producerName, arts)
	return d, nil
}

func (d *Deps) build(producerName string, arts *artifacts.PebbleStore) {
	cfg := d.Config
	events := &kafkax.Emitter{Producer: d.Producer, ServiceName: producerName}
	owners := redisx.Owners{RDB: d.Redis}

	d.Audit = &audit.Repo{DB: d.DB}
	d.Catalog = &catalog.Repo{DB: d.DB}
	d.Purchases = &orders.Repo{DB: d.DB}
	d.Settings = &settings.Repo{DB: d.DB, Audit: d.Audit}
	d.Artifacts = arts
	d.StatusCache = redisx.StatusCache{RDB: d.Redis}

	d.Dispatcher = &notify.Dispatcher{
		Store:       &notify.Repo{DB: d.DB},
		Users:       &users.Repo{DB: d.DB},
		Audit:       d.Audit,
		Metrics:     d.Metrics,
		Concurrency: cfg.FanoutConcurrency,
		Timeout:     cfg.StoreTimeout,
	}
	d.Ledger = &orders.Ledger{
		Store:    d.Purchases,
		Products: d.Catalog,
		Owners:   owners,
		Audit:    d.Audit,
		Events:   events,
		Metrics:  d.Metrics,
		Timeout:  cfg.StoreTimeout,
	}
	d.Scheduler = &delivery.Scheduler{
		Events: events,
		Async:  cfg.DeliveryMode == config.DeliveryAsync || arts == nil,
	}
	if arts != nil {
		d.Orchestrator = &delivery.Orchestrator{
			Store:         d.Purchases,
			Products:      d.Catalog,
			Renderer:      render.New(),
			Artifacts:     arts,
			Flags:         d.Settings,
			Locks:         redisx.Locks{RDB: d.Redis},
			Audit:         d.Audit,
			Events:        events,
			Metrics:       d.Metrics,
			StoreTimeout:  cfg.StoreTimeout,
			RenderTimeout: cfg.RenderTimeout,
		}
		d.Scheduler.Orchestrator = d.Orchestrator
	}
	d.Reconciler = &payments.Reconciler{
		Store:    d.Purchases,
		Delivery: d.Scheduler,
		Notifier: d.Dispatcher,
		Names:    productNames{d.Catalog},
		Owners:   owners,
		Audit:    d.Audit,
		Events:   events,
		Metrics:  d.Metrics,
		Timeout:  cfg.StoreTimeout,
	}
}

// StartDeliveryWorker consumes delivery.requested until ctx ends. It runs in
// the process that owns the artifact store. The returned channel closes once
// the consumer has stopped.
func (d *Deps) StartDeliveryWorker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if d.Orchestrator == nil {
		close(done)
		return done
	}
	w := &delivery.Worker{
		Orchestrator: d.Orchestrator,
		Dedup:        redisx.Dedup{RDB: d.Redis},
		ServiceName:  d.Config.ServiceName + "-delivery",
	}
	cons := kafkax.NewConsumer(d.Config.KafkaBrokers, d.Config.DeliveryGroup, orders.TopicDeliveryRequested, d.Config.DeliveryWorkers)
	go func() {
		defer close(done)
		log.Printf("delivery consumer started: group=%s topic=%s workers=%d",
			d.Config.DeliveryGroup, orders.TopicDeliveryRequested, d.Config.DeliveryWorkers)
		if err := cons.Start(ctx, w.HandleDeliveryRequested); err != nil {
			log.Printf("delivery consumer exit: %v", err)
		}
	}()
	return done
}

func (d *Deps) Close() {
	d.Producer.Close()
	d.Producer.WaitClosed()
	d.cancel()
	if d.Artifacts != nil {
		if err := d.Artifacts.Close(); err != nil {
			log.Printf("artifacts close: %v", err)
		}
	}
	_ = d.Redis.Close()
	d.DB.Close()
	if err := d.shutdown(context.Background()); err != nil {
		log.Printf("tracer shutdown: %v", err)
	}
}

type productNames struct{ repo *catalog.Repo }

func (p productNames) ProductName(ctx context.Context, id string) string {
	pr, err := p.repo.Get(ctx, id)
	if err != nil {
		return id
	}
	return pr.Name
}
