package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/robotctl/internal/activity"
	"github.com/nerrad567/robotctl/internal/api"
	"github.com/nerrad567/robotctl/internal/callstore"
	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
	"github.com/nerrad567/robotctl/internal/infrastructure/database"
	"github.com/nerrad567/robotctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/robotctl/internal/infrastructure/logging"
	"github.com/nerrad567/robotctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/robotctl/internal/mcpserver"
	"github.com/nerrad567/robotctl/internal/mqttbridge"
	"github.com/nerrad567/robotctl/internal/robot"
	"github.com/nerrad567/robotctl/migrations"
)

// shutdownTimeout bounds draining the activity queue on exit.
const shutdownTimeout = 10 * time.Second

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var noStdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the robot tools (default command)",
		Long: `Serve the robot tools over MCP stdio, plus the HTTP API, MQTT bridge,
call history and metrics when they are enabled in the config.

With --no-stdio the process runs as a daemon for the API and MQTT bridge
only and stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log := logging.NewWithWriter(cfg.Logging, version, cmd.ErrOrStderr())
			var in io.Reader
			if !noStdio {
				in = cmd.InOrStdin()
			}
			return run(cmd.Context(), cfg, log, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&noStdio, "no-stdio", false, "Do not serve MCP on stdin/stdout; run until signalled")
	return cmd
}

// run wires every component from cfg and serves until in reaches EOF (or,
// when in is nil, until ctx is cancelled).
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - cfg: Validated configuration
//   - log: Logger writing to stderr
//   - in, out: MCP stdio streams; in may be nil
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func run(ctx context.Context, cfg *config.Config, log *logging.Logger, in io.Reader, out io.Writer) error {
	log.Info("starting robotctl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	client, err := ecovacs.New(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}
	client.SetLogger(log.With("component", "ecovacs"))
	if !client.HasCredential() {
		log.Warn("no upstream credential configured; requests are sent without ak")
	}
	log.Info("upstream configured", "base_url", cfg.Upstream.BaseURL, "timeout", cfg.Upstream.Timeout)

	tools := robot.NewService(client)

	// Sinks are collected while the optional components come up; the
	// recorder is closed before any of them so queued calls can drain.
	var sinks []activity.Sink

	// Call history (optional)
	var db *database.DB
	var calls callstore.Repository
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo := callstore.NewSQLiteRepository(db.DB)
		calls = repo
		sinks = append(sinks, activity.StoreSink{Repo: repo})
	} else {
		log.Info("call history disabled")
	}

	// Metrics (optional)
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
		sinks = append(sinks, activity.MetricsSink{Writer: influxClient})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT events and request bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		sinks = append(sinks, activity.MQTTSink{Publisher: mqttClient})

		bridge, bridgeErr := mqttbridge.New(mqttClient, tools, log.With("component", "mqttbridge"))
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer bridge.Stop()
	} else {
		log.Info("MQTT disabled")
	}

	recorder := activity.New(activity.DefaultQueueSize, log, sinks...)
	tools.SetObserver(recorder)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := recorder.Close(drainCtx); closeErr != nil {
			log.Error("activity queue not drained", "error", closeErr, "dropped", recorder.Dropped())
		}
	}()

	// HTTP API (optional)
	if cfg.API.Enabled {
		srv, srvErr := newAPIServer(cfg, log, tools, calls, db, mqttClient, recorder)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		recorder.AddSink(activity.BroadcastSink{Hub: srv.Hub()})
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if in == nil {
		log.Info("initialisation complete, waiting for shutdown signal")
		<-ctx.Done()
		log.Info("shutdown signal received, cleaning up")
		return nil
	}

	mcp := mcpserver.New(cfg.MCP.Name, version, tools, log)
	if err := mcp.Serve(ctx, in, out); err != nil {
		return err
	}

	log.Info("robotctl stopped")
	return nil
}

// openDatabase opens the history database and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
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

// newAPIServer assembles the API dependencies. Optional components that are
// disabled are passed as untyped nil so the server can detect them.
func newAPIServer(cfg *config.Config, log *logging.Logger, tools *robot.Service, calls callstore.Repository,
	db *database.DB, mqttClient *mqtt.Client, recorder *activity.Recorder) (*api.Server, error) {
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Tools:    tools,
		Calls:    calls,
		Activity: recorder,
		Version:  version,
	}
	if db != nil {
		deps.DB = db.DB
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	return api.New(deps)
}

// healthCheck verifies the enabled infrastructure connections.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
