package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"netmon-dashboard/backend/config"
	"netmon-dashboard/backend/handlers"
	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/services"
	"netmon-dashboard/backend/system"
)

func main() {
	configPath := flag.String("config", "configs/netmon.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 0. Initialize Logger
	if err := system.InitLogger(cfg.Log.Dir, cfg.Log.Prefix); err != nil {
		log.Printf("Warning: Could not initialize file logger: %v", err)
	}
	defer system.Close()

	system.Info("NetMon backend starting (config: %s)...", *configPath)

	// 1. Setup Database
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			system.Warn("Failed to create database directory: %v", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		system.Error("Failed to connect to database: %v", err)
		log.Fatal("Failed to connect to database:", err)
	}
	system.Info("Database connected: %s", cfg.Database.Path)

	// history flushes and API reads run concurrently
	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		system.Warn("Failed to enable WAL mode: %v", err)
	} else {
		system.Info("SQLite WAL mode enabled")
	}

	if err := db.AutoMigrate(
		&models.Admin{},
		&models.MonitorSettings{},
		&models.TrafficSnapshot{},
		&models.AlertEvent{},
	); err != nil {
		system.Error("Database migration failed: %v", err)
		log.Fatalf("CRITICAL: Database migration failed. Application cannot start: %v", err)
	}
	system.Info("Database migration completed successfully")

	settings, err := handlers.LoadSettings(db)
	if err != nil {
		system.Warn("Using default monitor settings: %v", err)
		settings = models.DefaultMonitorSettings()
	}

	// 2. Setup Services
	geoipService := services.NewGeoIPService(cfg.GeoIP.DatabasePath)
	defer geoipService.Close()

	webhookService := services.NewWebhookService()
	events := services.NewEventLog(services.DefaultEventLogSize)

	simOpts := []services.SimulatorOption{
		services.WithTickInterval(cfg.TickInterval()),
		services.WithAlertProbability(cfg.Simulator.AlertProbability),
	}
	if cfg.Simulator.Seed != 0 {
		simOpts = append(simOpts, services.WithSeed(cfg.Simulator.Seed))
	}
	monitor := services.NewNetworkMonitor(services.NewSimulator(simOpts...),
		services.WithBufferSizes(cfg.Simulator.PacketBuffer, cfg.Simulator.AlertBuffer),
		services.WithSamplerOptions(
			services.WithSampleInterval(cfg.SampleInterval()),
			services.WithSampleHistory(cfg.Simulator.SampleHistory),
		),
	)

	// History recorder (SQLite always, ClickHouse optionally)
	var recorder *services.HistoryRecorder
	var clickhouseWriter *services.ClickHouseHistoryWriter
	if cfg.History.Enabled {
		gormWriter := services.NewGormHistoryWriter(db)
		writers := []services.HistoryWriter{gormWriter}

		if cfg.History.ClickHouse.Enabled {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			clickhouseWriter, err = services.NewClickHouseHistoryWriter(ctx, cfg.History.ClickHouse)
			cancel()
			if err != nil {
				system.Error("ClickHouse history disabled: %v", err)
			} else {
				writers = append(writers, clickhouseWriter)
			}
		}

		recorder = services.NewHistoryRecorder(geoipService, gormWriter, cfg.FlushInterval(), cfg.History.QueueSize, writers...)
		recorder.SetRetention(cfg.History.RetentionDays, cfg.History.AlertRetentionDays)
		monitor.OnSample(recorder.RecordSample)
		monitor.OnAlert(recorder.RecordAlert)
		recorder.Start()
	}

	notifier := services.NewAlertNotifier(webhookService, geoipService)
	monitor.OnAlert(notifier.Notify)
	notifier.Start()

	var publisher *services.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err = services.NewEventPublisher(cfg.NATS)
		if err != nil {
			system.Error("NATS publishing disabled: %v", err)
		} else {
			monitor.OnPacket(publisher.PublishPacket)
			monitor.OnAlert(publisher.PublishAlert)
			monitor.OnSample(publisher.PublishSample)
		}
	}

	captureService := services.NewCaptureService(cfg.Capture.Dir)
	monitor.OnPacket(captureService.HandlePacket)

	dailyReporter := services.NewDailyReporter(db, webhookService)
	dailyReporter.Start()

	// 3. Setup Handlers
	h := handlers.NewHandler(db, monitor, events, cfg.Auth.JWTSecret, cfg.TokenTTL())
	h.Webhook = webhookService
	h.Notifier = notifier
	h.Recorder = recorder
	h.Reporter = dailyReporter
	h.Capture = captureService
	h.GeoIP = geoipService
	h.ApplySettings(settings)
	if settings.DiscordWebhookURL != "" {
		system.Info("Discord webhook configured")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     system.Output(),
	}))

	app.Use(cors.New())

	h.RegisterRoutes(app.Group("/api"))

	// 4. Serve Static Files (Frontend)
	frontendPath := cfg.Server.FrontendPath
	app.Static("/", frontendPath, fiber.Static{
		ByteRange: true,
		Browse:    false,
		MaxAge:    3600,
	})

	// SPA Fallback: Serve index.html for all other routes
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(frontendPath, "index.html"))
	})

	events.Add(services.EventSuccess, "NetMon backend started")
	if cfg.Monitor.AutoStart {
		monitor.StartMonitoring()
		events.Add(services.EventSuccess, "Monitoring started at boot")
	}

	// Send Startup Alert
	go func() {
		time.Sleep(2 * time.Second)
		if webhookService.IsEnabled() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			msg := fmt.Sprintf("NetMon backend is now running on **%s** (%s)\nListening on `%s`",
				runtime.GOOS, time.Now().Format("2006-01-02 15:04:05"), cfg.Server.ListenAddr)
			if err := webhookService.SendSystemAlert(ctx, "Server Started", msg, services.ColorGreen); err != nil {
				system.Warn("Startup notification failed: %v", err)
			}
		}
	}()

	// Graceful Shutdown Handling
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		system.Info("Gracefully shutting down...")

		monitor.StopMonitoring()
		if captureService.IsCapturing() {
			if err := captureService.StopCapture(); err != nil {
				system.Warn("Failed to stop capture: %v", err)
			}
		}
		if recorder != nil {
			recorder.Stop()
		}
		if clickhouseWriter != nil {
			if err := clickhouseWriter.Close(); err != nil {
				system.Warn("Failed to close ClickHouse connection: %v", err)
			}
		}
		if publisher != nil {
			publisher.Close()
		}
		dailyReporter.Stop()
		notifier.Stop()

		if webhookService.IsEnabled() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = webhookService.SendSystemAlert(ctx, "Server Stopping", "NetMon backend is shutting down...", services.ColorOrange)
			cancel()
		}

		_ = app.Shutdown()
	}()

	system.Info("Server starting on %s (OS: %s)", cfg.Server.ListenAddr, runtime.GOOS)
	if err := app.Listen(cfg.Server.ListenAddr); err != nil {
		system.Error("Server stopped: %v", err)
		log.Fatal(err)
	}
}
