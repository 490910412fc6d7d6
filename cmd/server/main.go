package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moby-ops/moby-backend-go/internal/adapters/hostprobe"
	"github.com/moby-ops/moby-backend-go/internal/ai"
	"github.com/moby-ops/moby-backend-go/internal/api"
	"github.com/moby-ops/moby-backend-go/internal/config"
	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database"
	"github.com/moby-ops/moby-backend-go/internal/database/sqlite"
	"github.com/moby-ops/moby-backend-go/internal/metrics"
	"github.com/moby-ops/moby-backend-go/internal/notify"
	"github.com/moby-ops/moby-backend-go/internal/websocket"
	"github.com/moby-ops/moby-backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	// Create repositories
	telemetryRepo := sqlite.NewTelemetryRepository(db)
	alertRepo := sqlite.NewAlertRepository(db)

	// Create WebSocket hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Build the alert policy set: built-in policies plus the equipment
	// point-check presets, optionally replaced by a policy file.
	policies := alerting.DefaultPolicies()
	policies = append(policies,
		alerting.TemperatureCriticalPolicy(cfg.Alerting.Temperature.ThresholdC, cfg.Alerting.Temperature.Cooldown),
		alerting.SustainedVibrationPolicy(cfg.Alerting.Vibration.Cooldown),
	)
	if cfg.Alerting.PolicyFile != "" {
		loaded, err := alerting.LoadPoliciesFile(cfg.Alerting.PolicyFile)
		if err != nil {
			log.Fatal("Failed to load policy file: ", err)
		}
		policies = loaded
		log.WithField("count", len(policies)).Info("Loaded policies from file")
	}

	evaluator := alerting.NewEvaluator(telemetryRepo, log)
	registry, err := alerting.NewRegistry(policies, evaluator)
	if err != nil {
		log.Fatal("Failed to build policy registry: ", err)
	}

	// Alert summarization is optional and best-effort.
	var summarizer alerting.Summarizer
	if cfg.Summarizer.Enabled && cfg.Summarizer.APIKey != "" {
		summarizer = ai.NewSummarizer(cfg.Summarizer.BaseURL, cfg.Summarizer.APIKey, cfg.Summarizer.Model, cfg.Summarizer.Timeout, log)
		log.WithField("model", cfg.Summarizer.Model).Info("Alert summarizer enabled")
	}

	// Outbound channels. Email gates on severity; the webhook takes
	// everything it is handed.
	var operator, manager alerting.Notifier
	minSeverity, err := alerting.ParseSeverity(cfg.Notifications.Email.MinSeverity)
	if err != nil {
		minSeverity = alerting.SeverityCritical
	}
	if cfg.Notifications.Email.Enabled {
		email := notify.NewEmailNotifier(
			cfg.Notifications.Email.SMTPHost,
			cfg.Notifications.Email.SMTPPort,
			cfg.Notifications.Email.Sender,
			cfg.Notifications.Email.Password,
			cfg.Notifications.Email.Recipient,
			minSeverity,
			log,
		)
		operator = email
		manager = email
	}
	if cfg.Notifications.Webhook.Enabled {
		webhook := notify.NewWebhookNotifier(cfg.Notifications.Webhook.URL, cfg.Notifications.Webhook.Timeout, log)
		if operator != nil {
			operator = notify.NewMulti(operator, webhook)
		} else {
			operator = webhook
		}
		if manager == nil {
			manager = webhook
		}
	}

	collector := metrics.NewCollector(nil)
	operator = metrics.InstrumentNotifier(operator, collector)
	manager = metrics.InstrumentNotifier(manager, collector)

	factory := alerting.NewFactory(summarizer, cfg.Summarizer.Timeout, log)
	dispatcher := alerting.NewDispatcher(operator, manager, nil, nil, log)

	engine := alerting.NewEngine(alerting.EngineOptions{
		Registry:     registry,
		Suppression:  alerting.NewSuppressionState(cfg.Alerting.DedupWindow),
		Factory:      factory,
		Dispatcher:   dispatcher,
		Broadcaster:  wsHub,
		Store:        alertRepo,
		Metrics:      collector,
		Logger:       log,
		HistoryLimit: cfg.Alerting.HistoryLimit,
	})

	// Periodic point checks against stored telemetry.
	checker := alerting.NewChecker(telemetryRepo, engine,
		alerting.TemperatureCheckConfig{
			SensorType: cfg.Alerting.Temperature.SensorType,
			Window:     cfg.Alerting.Temperature.QueryWindow,
		},
		alerting.VibrationCheckConfig{
			SensorType:   cfg.Alerting.Vibration.SensorType,
			Threshold:    cfg.Alerting.Vibration.Threshold,
			Duration:     cfg.Alerting.Vibration.Duration,
			SampleRateHz: cfg.Alerting.Vibration.SampleRateHz,
		},
		log,
	)

	scheduler := alerting.NewScheduler(checker, engine, log)
	if err := scheduler.ScheduleChecks(cfg.Alerting.CheckInterval); err != nil {
		log.Fatal("Failed to schedule checks: ", err)
	}
	if cfg.Alerting.HostProbe.Enabled {
		if err := scheduler.ScheduleSource(hostprobe.New(), cfg.Alerting.HostProbe.Interval); err != nil {
			log.Fatal("Failed to schedule host probe: ", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Escalation sweeps run for the process lifetime.
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	monitor := alerting.NewEscalationMonitor(engine, cfg.Alerting.EscalationInterval, log)
	go monitor.Run(monitorCtx)

	// HTTP server
	router := api.NewRouter(cfg, engine, telemetryRepo, alertRepo, wsHub, log)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}
