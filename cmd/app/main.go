package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fitstudio/internal/audit"
	"fitstudio/internal/booking"
	"fitstudio/internal/catalog"
	"fitstudio/internal/config"
	"fitstudio/internal/db"
	"fitstudio/internal/events"
	"fitstudio/internal/ledger"
	"fitstudio/internal/logger"
	"fitstudio/internal/order"
	"fitstudio/internal/payment/mercadopago"
	"fitstudio/internal/server"
	"fitstudio/internal/session"
	"fitstudio/internal/store/memory"
	"fitstudio/internal/waitlist"
	"fitstudio/internal/worker"
)

// backend is the set of repositories the services run on.
type backend struct {
	sessions session.Repository
	bookings booking.Repository
	ledger   ledger.Repository
	waitlist waitlist.Repository
	orders   order.Repository
	catalog  catalog.Lookup
	tx       db.TxManager
	// sql is nil when running on the in-process store.
	sql  *sqlx.DB
	ping func(ctx context.Context) error
}

func postgresBackend(cfg *config.Config) (*backend, error) {
	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, cfg.DBConnectTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	version, err := db.RunMigrations(database, cfg.MigrationsPath)
	if err != nil {
		database.Close()
		return nil, err
	}
	logger.Info("Migrations completed", "version", version)

	return &backend{
		sessions: session.NewRepository(database),
		bookings: booking.NewRepository(database),
		ledger:   ledger.NewRepository(database),
		waitlist: waitlist.NewRepository(database),
		orders:   order.NewRepository(database),
		catalog:  catalog.NewRepository(database),
		tx:       db.NewTxManager(database),
		sql:      database,
		ping:     database.PingContext,
	}, nil
}

func memoryBackend() *backend {
	logger.Warn("Using the in-process store, data is lost on exit")
	st := memory.New()
	return &backend{
		sessions: st.Sessions(),
		bookings: st.Bookings(),
		ledger:   st.Ledger(),
		waitlist: st.Waitlist(),
		orders:   st.Orders(),
		catalog:  st.Catalog(),
		tx:       st,
	}
}

// @title FitStudio API
// @version 1.0
// @description Class booking, entitlements and payments for fitness studios.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting FitStudio application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	var store *backend
	if cfg.MemoryStore() {
		store = memoryBackend()
	} else {
		store, err = postgresBackend(cfg)
		if err != nil {
			logger.Fatalf("Failed to prepare database: %v", err)
		}
		defer store.sql.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	var sink audit.Sink = audit.NopSink{}
	if store.sql != nil {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, audit events are dropped", "addr", cfg.RedisAddr, "error", err)
		} else {
			sink = audit.NewRedisSink(rdb, cfg.AuditQueue)
			drainer := audit.NewDrainer(rdb, audit.NewStore(store.sql), cfg.AuditQueue)
			g.Go(func() error {
				drainer.Start(gctx)
				return nil
			})
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, domain events are dropped", "error", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
			logger.Info("Publishing domain events", "exchange", cfg.AMQPExchange)
		}
	}

	ledgerService := ledger.NewService(store.ledger, store.tx)
	queue := waitlist.NewQueue(store.waitlist, store.tx)
	engine := booking.NewEngine(store.bookings, store.sessions, ledgerService, queue, store.tx,
		booking.WithAudit(sink),
		booking.WithPublisher(publisher),
	)

	orderOpts := []order.Option{
		order.WithAudit(sink),
		order.WithPublisher(publisher),
		order.WithWebhookSecret(cfg.MPWebhookSecret),
		order.WithCheckoutURLs(cfg.MPNotificationURL, cfg.FrontendURL),
		order.WithDefaultCurrency(cfg.DefaultCurrency),
	}
	if cfg.PaymentsEnabled() {
		orderOpts = append(orderOpts, order.WithGateway(mercadopago.New(cfg.MPBaseURL, cfg.MPAccessToken, cfg.MPTimeout)))
	} else {
		logger.Warn("MP_ACCESS_TOKEN not set, checkout links and webhooks are disabled")
	}
	processor := order.NewProcessor(store.orders, store.catalog, ledgerService, store.tx, orderOpts...)

	if cfg.PaymentsEnabled() {
		reconciler := worker.NewReconciler(store.orders, processor, cfg.ReconcileInterval, cfg.ReconcileGrace, cfg.ReconcileWorkers)
		g.Go(func() error {
			reconciler.Start(gctx)
			return nil
		})
	}

	srv := server.New(cfg, server.Handlers{
		Sessions: session.NewHandler(session.NewService(store.sessions, sink)),
		Bookings: booking.NewHandler(engine),
		Orders:   order.NewHandler(processor),
		Ledger:   ledger.NewHandler(ledgerService),
		Waitlist: waitlist.NewHandler(queue),
		Ping:     store.ping,
	})

	g.Go(func() error {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Server stopped")
}
