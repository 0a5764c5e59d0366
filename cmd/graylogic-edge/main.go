// Gray Logic Edge - Device & Connection Provisioning Orchestrator
//
// This is the main entry point for the Gray Logic Edge service. It provisions
// edge gateway devices and deploys and controls the industrial protocol
// connections (OPC DA, OPC UA, OSI PI) that run on them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	_ "github.com/nerrad567/gray-logic-edge/migrations"

	"github.com/nerrad567/gray-logic-edge/internal/api"
	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/awscloud"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Edge",
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log)
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

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	// Usage metrics are written to InfluxDB when it is enabled. The writer
	// stays a nil interface otherwise so the sender disables itself.
	var usageWriter influxdb.PointWriter
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		usageWriter = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled, usage metrics will not be recorded")
	}

	awsCfg, err := awscloud.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	clients := awscloud.New(awsCfg, cfg)

	auditRepo := audit.NewSQLiteRepository(db.DB)

	installationID := cfg.Metrics.InstallationID
	if installationID == "" {
		installationID = uuid.NewString()
		log.Warn("metrics.installation_id not set, using a generated id for this run",
			"installation_id", installationID)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		Principal:       cfg.Provisioning.Principal,
		TemplatePrefix:  cfg.Provisioning.TemplatePrefix,
		InstallPrefix:   cfg.Provisioning.InstallPrefix,
		DefaultScript:   cfg.Provisioning.DefaultScript,
		SharedArtifacts: cfg.Provisioning.SharedArtifacts,
		RetryAttempts:   cfg.Provisioning.Retry.Attempts,
		RetryStep:       cfg.RetryStep(),
		InstallationID:  installationID,
	}, orchestrator.Deps{
		Gateways:    gateway.NewSQLiteRepository(db.DB),
		Connections: connection.NewSQLiteRepository(db.DB),
		Identity:    clients.Identity,
		Fleet:       clients.Fleet,
		Capability:  clients.Capability,
		Objects:     clients.Objects,
		Publisher:   mqttClient,
		Worker:      clients.Worker,
		Metrics:     influxdb.NewUsageSender(usageWriter, cfg.Metrics),
		Audit:       auditRepo,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:       cfg.API,
		Logger:       log,
		Orchestrator: orch,
		AuditLog:     auditRepo,
		HealthChecks: checks,
		Version:      version,
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

	// Deferred Close() calls run in reverse order: API server, InfluxDB,
	// MQTT, database.
	log.Info("Gray Logic Edge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_EDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_EDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
