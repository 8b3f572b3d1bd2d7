package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pbel78/scratch2/internal/api"
	"github.com/pbel78/scratch2/internal/history"
	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/database"
	"github.com/pbel78/scratch2/internal/infrastructure/influxdb"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
	"github.com/pbel78/scratch2/internal/panel"
	"github.com/pbel78/scratch2/migrations"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the command API until interrupted",
		Long: `Run the HTTP and WebSocket command API.

Sessions are started through POST /api/v1/session/connect. With --connect
the bridge also connects to the configured broker at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, newLogger(cfg), connect)
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "connect to the configured broker at startup")

	return cmd
}

// run is the serve logic, separated from the command for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, cfg *config.Config, log *logging.Logger, connect bool) error {
	log.Info("starting scratchbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	b, err := newBridge(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing mqtt session")
		b.close()
	}()

	checks := map[string]api.HealthChecker{}

	// Command history (optional)
	var repo history.Repository
	if cfg.Database.Enabled {
		db, dbErr := openHistory(ctx, cfg.Database, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		sqliteRepo, repoErr := history.NewSQLiteRepository(db.DB)
		if repoErr != nil {
			return fmt.Errorf("creating history repository: %w", repoErr)
		}
		b.dispatcher.AddRecorder(sqliteRepo)
		repo = sqliteRepo
		checks["database"] = db
	} else {
		log.Info("command history disabled")
	}

	// Telemetry (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		wireTelemetry(b, influxClient)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	b.manager.OnStateChange(func(change mqtt.StateChange) {
		log.Info("mqtt session state changed",
			"session_id", change.SessionID,
			"from", change.From.String(),
			"to", change.To.String(),
		)
	})

	if connect {
		if err := b.connectAndWait(ctx); err != nil {
			return fmt.Errorf("connecting to broker: %w", err)
		}
		log.Info("MQTT connected", "url", cfg.MQTT.Broker.URL)
	}

	if !cfg.API.Enabled {
		log.Warn("API disabled; nothing to serve until interrupted")
		<-ctx.Done()
		return nil
	}

	var panelHandler http.Handler
	if cfg.API.Panel.Enabled {
		panelHandler = panel.Handler(cfg.API.Panel.Dir)
	}

	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Sessions: b.manager,
		Commands: b.dispatcher,
		History:  repo,
		Checks:   checks,
		Panel:    panelHandler,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, database, MQTT session.
	return nil
}

// openHistory opens the history database and applies migrations.
func openHistory(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())
	return db, nil
}

// wireTelemetry sends commands, inbound messages and session transitions
// to InfluxDB.
func wireTelemetry(b *bridge, client *influxdb.Client) {
	b.dispatcher.AddRecorder(client)
	b.manager.OnMessage(client.WriteMessage)
	b.manager.OnStateChange(func(change mqtt.StateChange) {
		client.WriteSessionState(change.SessionID, change.From.String(), change.To.String())
	})
}
