// Gray Logic Caséta Bridge
//
// This is the main entry point for the Lutron Caséta bridge service. It
// connects Caséta Smart Bridges over LEAP and exposes their devices to
// Gray Logic Core:
//   - Entity state is published to MQTT (and optionally InfluxDB)
//   - Commands arrive over MQTT or the REST API
//   - Bridges are added through config flows or the static config file
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-caseta/migrations"

	"github.com/nerrad567/gray-logic-caseta/internal/api"
	"github.com/nerrad567/gray-logic-caseta/internal/audit"
	"github.com/nerrad567/gray-logic-caseta/internal/bridges/caseta"
	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Caséta bridge",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	sinks := []hub.StateSink{hub.NewMQTTStateSink(mqttClient, caseta.Protocol)}
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, hub.NewHistoryStateSink(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Build the hub and the Caséta integration
	h := hub.New(hub.Options{
		Repo:   hub.NewSQLiteRepository(db.DB),
		Logger: log,
		Sinks:  sinks,
	})
	integration, err := registerCaseta(h, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("unloading config entries")
		h.UnloadAll(context.WithoutCancel(ctx))
	}()

	loaded, err := integration.Start(ctx, h, bridgeConfigs(cfg.Caseta.Bridges))
	if err != nil {
		return fmt.Errorf("starting bridges: %w", err)
	}
	log.Info("config entries set up", "loaded", loaded, "total", len(h.Entries("")))

	// MQTT command routing and health reporting
	router := hub.NewCommandRouter(mqttClient, h, caseta.Protocol)
	if err := router.Start(); err != nil {
		return fmt.Errorf("starting command router: %w", err)
	}
	defer func() {
		if stopErr := router.Stop(); stopErr != nil {
			log.Warn("error stopping command router", "error", stopErr)
		}
	}()

	reporter := hub.NewHealthReporter(hub.HealthReporterConfig{
		Protocol:  caseta.Protocol,
		Version:   version,
		Publisher: mqttClient,
		Hub:       h,
	})
	if err := reporter.PublishStarting(); err != nil {
		log.Warn("failed to publish starting health", "error", err)
	}
	reporter.Start(ctx)
	defer reporter.Stop()

	// Start the REST API
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Hub:     h,
		DB:      db,
		MQTT:    mqttClient,
		Bridges: integration.Registry(),
		Audit:   audit.NewSQLiteRepository(db.DB),
		Version: version,
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

	// Deferred calls run in reverse order: API, health reporter, command
	// router, config entries (closing bridges), InfluxDB, MQTT, database.

	log.Info("Gray Logic Caséta bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// registerCaseta wires the Caséta integration and its platforms into h.
func registerCaseta(h *hub.Hub, cfg *config.Config, log *logging.Logger) (*caseta.Integration, error) {
	registry := caseta.NewBridgeRegistry()
	connector := caseta.NewConnector(
		caseta.LEAPFactory(leap.WithLogger(log)),
		cfg.GetConnectTimeout(),
	)

	integration := caseta.New(caseta.Options{
		Host:           h,
		Registry:       registry,
		Connector:      connector,
		AwaitPlatforms: cfg.Caseta.AwaitPlatforms,
		Logger:         log,
	})
	if err := h.RegisterIntegration(integration); err != nil {
		return nil, fmt.Errorf("registering %s: %w", caseta.Domain, err)
	}
	caseta.RegisterPlatforms(h, registry)

	log.Info("Lutron Caséta integration registered",
		"static_bridges", len(cfg.Caseta.Bridges),
		"await_platforms", cfg.Caseta.AwaitPlatforms,
	)
	return integration, nil
}

// bridgeConfigs converts the static bridge list of the config file.
func bridgeConfigs(bridges []config.BridgeConfig) []caseta.BridgeConfig {
	out := make([]caseta.BridgeConfig, 0, len(bridges))
	for _, b := range bridges {
		out = append(out, caseta.BridgeConfig{
			Host:     b.Host,
			Keyfile:  b.Keyfile,
			Certfile: b.Certfile,
			CACerts:  b.CACerts,
		})
	}
	return out
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
