// LabLink Dispatcher - device/interface session broker
//
// The dispatcher keeps a registry of lab devices and the interfaces allowed
// to drive them, brokers live sessions between the two over WebSocket, and
// broadcasts every registry and session change to subscribed clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lablink/dispatcher-core/migrations"

	"github.com/lablink/dispatcher-core/internal/api"
	"github.com/lablink/dispatcher-core/internal/broker"
	"github.com/lablink/dispatcher-core/internal/identity"
	"github.com/lablink/dispatcher-core/internal/infrastructure/config"
	"github.com/lablink/dispatcher-core/internal/infrastructure/database"
	"github.com/lablink/dispatcher-core/internal/infrastructure/influxdb"
	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
	"github.com/lablink/dispatcher-core/internal/infrastructure/mqtt"
	"github.com/lablink/dispatcher-core/internal/registry"
	"github.com/lablink/dispatcher-core/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting LabLink Dispatcher",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Stores
	registryRepo := registry.NewSQLiteRepository(db.DB)
	sessionStore := session.NewSQLiteStore(db.DB)

	// Purge stale sessions: transport ids never survive a restart, so any
	// row left over from a previous process is a lie.
	purged, err := sessionStore.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purging stale sessions: %w", err)
	}
	if purged > 0 {
		log.Info("purged stale sessions from previous run", "count", purged)
	}

	// Purge again on the way out so the next instance starts clean even if
	// clients were still connected when the shutdown signal arrived.
	defer func() {
		if _, purgeErr := sessionStore.Purge(context.Background()); purgeErr != nil {
			log.Error("error purging sessions at shutdown", "error", purgeErr)
		} else {
			log.Info("sessions purged at shutdown")
		}
	}()

	// Connect to MQTT broker (optional event relay)
	var relay broker.EventRelay
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		relay = mqttClient
	} else {
		log.Info("MQTT relay disabled")
	}

	// Connect to InfluxDB (optional telemetry)
	var metrics broker.MetricSink
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		metrics = influxClient
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	// Identity provider (optional login flow)
	var idp *identity.Provider
	if cfg.Identity.Enabled {
		idp = identity.New(cfg.Identity, log)
		log.Info("identity provider configured", "auth_url", cfg.Identity.AuthURL)
	} else {
		log.Info("identity provider disabled")
	}

	// The hub is built first, the broker broadcasts through it, and the hub
	// routes protocol messages back to the broker.
	hub := api.NewHub(cfg.WebSocket, log)
	announcer := broker.NewAnnouncer(hub, relay, metrics, log)
	b := broker.New(registryRepo, sessionStore, announcer, log)
	hub.SetBroker(b)

	server, err := api.New(api.Deps{
		Config:    cfg.Server,
		WS:        cfg.WebSocket,
		Logger:    log,
		Registry:  registryRepo,
		Sessions:  sessionStore,
		Broker:    b,
		Announcer: announcer,
		Identity:  idp,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains WebSocket clients and in-flight requests)
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Session purge
	// 5. Database

	log.Info("LabLink Dispatcher stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LABLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LABLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
