package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-publisher/internal/api/http"
	"github.com/i474232898/weather-publisher/internal/config"
	"github.com/i474232898/weather-publisher/internal/logging"
	"github.com/i474232898/weather-publisher/internal/scheduler"
	"github.com/i474232898/weather-publisher/internal/store"
	"github.com/i474232898/weather-publisher/internal/weather"
	"github.com/i474232898/weather-publisher/internal/xively"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_FILE")
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rootLogger, err := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	appLogger := rootLogger.Named("main")

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// In-memory archive with configured retention.
	memStore := store.NewMemoryStore(cfg.Store.MaxHistory, cfg.Store.MaxAge)
	service := weather.NewService(memStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Xively uploader; rain accumulations are filled from the archive.
	// A bad xively section disables uploads only; archive and API keep running.
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	var (
		schedSources []scheduler.StatsSource
		apiSources   []httpapi.StatsSource
	)
	uploader, err := xively.New(cfg.Xively, rootLogger.Named("xively"), registerer,
		weather.NewRainAugmenter(memStore, time.Local))
	if err != nil {
		appLogger.Errorf("%s: %v", xively.Protocol, err)
	} else {
		service.Subscribe(uploader)
		uploader.Start(ctx)
		appLogger.Infof("%s: data will be uploaded to %s", xively.Protocol, uploader.Publisher.URL())
		schedSources = append(schedSources, uploader)
		apiSources = append(apiSources, uploader)
	}

	// Periodic archive pruning and uploader status.
	sched := scheduler.New(cfg.Scheduler.Interval, memStore, rootLogger.Named("scheduler"), schedSources...)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-publisher",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-publisher",
		})
	})

	if reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	httpapi.RegisterRoutes(app, service, apiSources...)

	go func() {
		if err := app.Listen(":" + cfg.HTTP.Port); err != nil {
			appLogger.Errorf("fiber server stopped: %v", err)
		}
	}()
	appLogger.Infof("listening on :%s", cfg.HTTP.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Errorf("error during shutdown: %v", err)
	}

	// No new records after the server is down; finish the one in flight.
	if uploader != nil {
		uploader.Stop()
	}
	appLogger.Infof("shutdown complete")
}
