package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/cache"
	"github.com/Freeeeeet/coach_booking/internal/config"
	"github.com/Freeeeeet/coach_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/coach_booking/internal/notify"
	"github.com/Freeeeeet/coach_booking/internal/repository"
	"github.com/Freeeeeet/coach_booking/internal/repository/memory"
	"github.com/Freeeeeet/coach_booking/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired engine and the resources it must release.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Pool         *pgxpool.Pool // nil with memory storage
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Capacity     *service.CapacityCalculator
	Scheduler    *Scheduler

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// New connects the configured backends and builds the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	availability, ledger, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	slotCache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.openNotifiers()
	if err != nil {
		a.Close()
		return nil, err
	}

	slots := service.NewSlotGenerator(availability, ledger, slotCache, logger)
	a.Availability = service.NewAvailabilityService(availability, slotCache, logger)
	a.Bookings = service.NewBookingService(ledger, slots, slotCache, notifier, cfg.LeadTime(), time.Now, logger)
	a.Capacity = service.NewCapacityCalculator(availability, ledger)
	a.Scheduler = NewScheduler(a.Bookings, cfg.ReminderInterval, cfg.ReminderLead, logger)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (service.AvailabilityStore, service.BookingLedger, error) {
	if a.cfg.Storage == config.StorageMemory {
		a.logger.Warn("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return store, store, nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	a.closers = append(a.closers, closerFunc(func() error { pool.Close(); return nil }))

	if err := pool.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	a.Pool = pool
	a.logger.Info("Connected to database")

	return repository.NewAvailabilityRepository(pool, a.logger), repository.NewBookingRepository(pool, a.logger), nil
}

func (a *App) openCache(ctx context.Context) (service.SlotCache, error) {
	if a.cfg.RedisAddr == "" {
		return service.NopSlotCache(), nil
	}

	client, err := cache.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)

	a.logger.Info("Slot cache enabled",
		zap.String("addr", a.cfg.RedisAddr),
		zap.Duration("ttl", a.cfg.SlotCacheTTL),
	)
	return cache.NewSlotCache(client, a.cfg.SlotCacheTTL, a.logger), nil
}

func (a *App) openNotifiers() (service.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(a.logger)}

	if a.cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub)
		notifiers = append(notifiers, pub)
		a.logger.Info("Publishing booking events", zap.String("exchange", a.cfg.AMQPExchange))
	}

	if a.cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(a.cfg.TelegramToken, a.cfg.TelegramNotifyChatID, a.logger)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
		a.logger.Info("Telegram notifications enabled", zap.Int64("chat_id", a.cfg.TelegramNotifyChatID))
	}

	return notifiers, nil
}

// Migrate applies the schema. It is a no-op for memory storage.
func (a *App) Migrate(ctx context.Context) error {
	if a.Pool == nil {
		a.logger.Info("Memory storage needs no migrations")
		return nil
	}

	migrator, err := NewMigrator(a.Pool, a.logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}

// Serve runs the HTTP API and the reminder scheduler until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	handler := httpapi.NewServerHandler(
		httpapi.NewHandler(a.Bookings, a.Availability, a.Capacity, time.Now, a.logger),
		httpapi.Options{
			CORSOrigins:    a.cfg.CORSOrigins,
			RateLimitRPS:   a.cfg.RateLimitRPS,
			RateLimitBurst: a.cfg.RateLimitBurst,
		},
	)

	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(a.Scheduler.Stop)

	a.Scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.Scheduler.Stop()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received, shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info("Server stopped cleanly")
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}
