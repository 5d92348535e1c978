package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/parish-booking/internal/config"
	"github.com/iliyamo/parish-booking/internal/database"
	"github.com/iliyamo/parish-booking/internal/handler"
	"github.com/iliyamo/parish-booking/internal/middleware"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/queue"
	"github.com/iliyamo/parish-booking/internal/repository"
	"github.com/iliyamo/parish-booking/internal/router"
	"github.com/iliyamo/parish-booking/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; booked-date cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		pub, err := queue.NewPublisher(cfg.AMQPURL, cfg.EventExchange)
		if err != nil {
			log.Printf("rabbitmq unavailable, booking events disabled: %v", err)
		} else {
			defer pub.Close()
			events = pub
			consumer := &queue.Consumer{URL: cfg.AMQPURL, Exchange: cfg.EventExchange, Queue: cfg.EventQueue, Dir: cfg.EventLogDir}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("booking-consumer: stopped: %v", err)
				}
			}()
		}
	}

	repo := repository.NewBookingRepo(db)
	avail := service.NewAvailabilityIndex(repo, rdb, config.LoadAvailabilityCacheConfig())
	svc := service.NewBookingService(repo, avail, events)
	limiter := middleware.NewLimiter(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, handler.Health{DB: db})
	for _, k := range model.Kinds {
		router.RegisterBookings(e, handler.NewBookingHandler(svc, k), cfg.JWTSecret, limiter)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
