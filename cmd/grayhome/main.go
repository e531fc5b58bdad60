// Gray Logic Home - household automation dashboard core
//
// This is the main entry point for the grayhome daemon. It owns one
// household session: simulated sensors, device state, the activity feed,
// WiFi management and an optional MQTT broker bridge, served over a REST
// and WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/gray-logic-home/migrations"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/api"
	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-home/internal/session"
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

// pruneInterval is how often old journal rows are trimmed.
const pruneInterval = time.Hour

// journalTables are the archive tables subject to retention.
var journalTables = []string{"activity_log", "alert_log"}

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
func run(ctx context.Context) error { //nolint:gocognit,funlen // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic Home",
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

	// Activity archive (optional)
	var db *database.DB
	var archive activity.Archive
	if cfg.Database.Enabled {
		db, err = database.Open(database.Config{
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
		archive = activity.NewSQLiteArchive(db.DB)
		log.Info("activity archive ready", "path", cfg.Database.Path)

		if cfg.Database.RetentionDays > 0 {
			go pruneLoop(ctx, db, cfg.Database.RetentionDays, log)
		}
	} else {
		log.Info("activity archive disabled")
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := session.Options{
		Config:  cfg,
		Client:  brokerClient(cfg, log),
		Metrics: broker.NewMetrics(reg),
		Archive: archive,
		Logger:  log.Component("session"),
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "grayhome",
			Subsystem: "influxdb",
			Name:      "write_errors_total",
			Help:      "Telemetry batches rejected by InfluxDB.",
		}, func() float64 { return float64(influxClient.WriteErrors()) }))
	}

	sess, err := session.New(opts)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if archive != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "grayhome",
			Subsystem: "archive",
			Name:      "dropped_writes_total",
			Help:      "Activity archive writes discarded because the queue was full.",
		}, func() float64 { return float64(sess.ArchiveDropped()) }))
	}
	defer func() {
		log.Info("closing session")
		if closeErr := sess.Close(); closeErr != nil {
			log.Error("error closing session", "error", closeErr)
		}
	}()

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.Component("api"),
		Session:  sess,
		Gatherer: reg,
		Version:  version,
	}
	if influxClient != nil {
		deps.History = influxClient
	}

	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// The bridge failing to connect is not fatal; the operator can retry.
	if cfg.MQTT.AutoConnect {
		if _, connErr := sess.ConnectConfiguredBroker(ctx); connErr != nil {
			log.Warn("broker auto-connect failed", "error", connErr)
		}
	}

	go sess.Run(ctx, cfg.GetTickInterval())

	if err := healthCheck(ctx, db, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tick_interval", cfg.GetTickInterval(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYHOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// brokerClient selects the broker client for the session bridge.
func brokerClient(cfg *config.Config, log *logging.Logger) broker.Client {
	if cfg.MQTT.Stub {
		log.Info("using stub broker client")
		return broker.NewStubClient()
	}
	return &pahoDialer{log: log.Component("mqtt")}
}

// pahoDialer adapts mqtt.Connect to broker.Client.
type pahoDialer struct {
	log *logging.Logger
}

// Dial implements broker.Client.
func (d *pahoDialer) Dial(ctx context.Context, cfg config.MQTTConfig) (broker.Connection, error) {
	client, err := mqtt.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client.SetLogger(d.log)
	return client, nil
}

// healthCheck verifies the started components are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Archive database (nil when disabled)
//   - influxClient: InfluxDB client (nil when disabled)
//   - apiServer: Started API server
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client, apiServer *api.Server) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// pruneLoop trims journal rows older than retentionDays until ctx ends.
func pruneLoop(ctx context.Context, db *database.DB, retentionDays int, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		pruneJournal(ctx, db, retentionDays, log)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pruneJournal runs one retention pass over every journal table.
func pruneJournal(ctx context.Context, db *database.DB, retentionDays int, log *logging.Logger) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, table := range journalTables {
		n, err := db.Prune(ctx, table, cutoff)
		if err != nil {
			log.Warn("journal prune failed", "table", table, "error", err)
			continue
		}
		if n > 0 {
			log.Info("journal pruned", "table", table, "rows", n)
		}
	}
}
