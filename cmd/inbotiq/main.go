// Inbotiq Core - role-based authentication gateway
//
// This is the main entry point for the Inbotiq Core service. It owns the
// durable user store, issues and revokes session tokens, enforces the
// origin policy and serves the /api/auth endpoints used by the web client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	_ "github.com/itz-ankit01/inbotiq-core/migrations"

	"github.com/itz-ankit01/inbotiq-core/internal/activity"
	"github.com/itz-ankit01/inbotiq-core/internal/api"
	"github.com/itz-ankit01/inbotiq-core/internal/auth"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/config"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/influxdb"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/logging"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/metrics"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/mqtt"
	"github.com/itz-ankit01/inbotiq-core/internal/origin"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// defaultConfigPath is read when present; its absence is not an error.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Running the root command is the same as serve.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "inbotiq",
		Short:         "Inbotiq Core authentication gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	addConfigFlag(root.PersistentFlags(), &configPath)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				printVersion(cmd.OutOrStdout())
			},
		},
	)

	return root
}

func addConfigFlag(fs *pflag.FlagSet, dst *string) {
	fs.StringVarP(dst, "config", "c", "", "path to YAML config file (env INBOTIQ_CONFIG, default "+defaultConfigPath+" if present)")
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "inbotiq %s (commit %s, built %s)\n", version, commit, date)
}

// resolveConfigPath picks the flag, then INBOTIQ_CONFIG, then the default
// file if it exists. "" means environment-only configuration.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("INBOTIQ_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// loadConfig resolves and loads configuration, then builds the configured logger.
func loadConfig(flagValue string) (*config.Config, *logging.Logger, error) {
	path := resolveConfigPath(flagValue)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	if path == "" {
		log.Info("configuration loaded from environment")
	} else {
		log.Info("configuration loaded", "path", path)
	}
	return cfg, log, nil
}

// migrate applies pending migrations for the configured store and exits.
func migrate(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	return st.close()
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, configPath string) error {
	logging.Default().Info("starting Inbotiq Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// The store comes first: nothing is served without it.
	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := st.close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	var revocationRepo auth.RevocationRepository
	if cfg.Security.Revocation.Persist {
		revocationRepo = st.revocations
	}
	revoked := auth.NewRevocationList(revocationRepo, log.With("component", "revocation").Logger)
	restored, err := revoked.Load(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("restoring revocations: %w", err)
	}
	log.Info("revocation list ready", "restored", restored, "persisted", revocationRepo != nil)

	svc, err := auth.NewService(auth.ServiceConfig{
		Secret:   cfg.Security.JWT.Secret,
		TokenTTL: cfg.GetTokenTTL(),
		Password: auth.PasswordParams{
			Iterations: uint32(cfg.Security.Password.Iterations), //nolint:gosec // validated 1..10
			MemoryKiB:  uint32(cfg.Security.Password.MemoryKiB),  //nolint:gosec // validated >= 1024
			Threads:    uint8(cfg.Security.Password.Threads),     //nolint:gosec // validated 1..255
		},
		MinPasswordLength: cfg.Security.Password.MinLength,
	}, st.users, revoked, log.With("component", "auth").Logger)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	m := metrics.New()
	if err := m.RegisterGauge("revoked_tokens", "Revoked tokens not yet expired", func() float64 {
		return float64(revoked.Len())
	}); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// Background workers stop before the store closes.
	bgCtx, stopBackground := context.WithCancel(ctx)
	pruneDone := make(chan struct{})
	go func() {
		defer close(pruneDone)
		revoked.Run(bgCtx, cfg.GetPruneInterval())
	}()
	defer func() {
		stopBackground()
		<-pruneDone
	}()

	// Audit writes go through a queue so a busy store never delays a response.
	auditQueue, stopAudit := startQueue(ctx, "audit", activity.AuditSink(st.audit, log.Logger), log)
	defer stopAudit()

	sinks := auth.MultiSink{activity.MetricsSink(m), auditQueue}
	checks := map[string]api.HealthCheckFunc{"database": st.healthCheck}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, auth events will not be published", "error", mqttErr)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log)
			mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)

			// Drained before the client closes.
			mqttQueue, stopMQTTQueue := startQueue(ctx, "mqtt", activity.MQTTSink(mqttClient, log.Logger), log)
			defer stopMQTTQueue()
			sinks = append(sinks, mqttQueue)
			checks["mqtt"] = mqttClient.HealthCheck
		}
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, auth activity will not be recorded", "error", influxErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
			sinks = append(sinks, activity.InfluxSink(influxClient))
			checks["influxdb"] = influxClient.HealthCheck
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	svc.SetEventSink(sinks)

	if cfg.Security.Admin.Enabled() {
		admin := cfg.Security.Admin
		if _, seedErr := svc.SeedAdmin(ctx, admin.Name, admin.Email, admin.Password); seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
	}

	policy, err := origin.NewPolicy(cfg.API.CORS.AllowedOrigins, cfg.API.CORS.Strict)
	if err != nil {
		return fmt.Errorf("building origin policy: %w", err)
	}
	log.Info("origin policy loaded", "origins", policy.Entries(), "strict", policy.Strict())

	srv, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Auth:    svc,
		Origins: policy,
		Metrics: m,
		Audit:   st.audit,
		Version: version,
		Checks:  checks,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	ln, err := api.Listen(ctx, api.ListenConfig{
		Host:        cfg.API.Host,
		Port:        cfg.API.Port,
		MaxAttempts: cfg.API.MaxBindAttempts,
		Logger:      log,
		OnAttempt:   func(int) { m.BindAttempts.Inc() },
	})
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}
	if err := srv.Start(ctx, ln); err != nil {
		ln.Close() //nolint:errcheck // start error takes precedence
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("Inbotiq Core started", "address", srv.Addr(), "store", st.driver)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr := <-srv.Err():
		return fmt.Errorf("API server: %w", serveErr)
	}

	return nil
}

// startQueue runs sink behind a bounded queue. The returned stop function
// drains what is queued and waits for delivery to finish. The queue outlives
// ctx cancellation so shutdown events are still delivered.
func startQueue(ctx context.Context, name string, sink auth.EventSink, log *logging.Logger) (*activity.Async, func()) {
	q := activity.NewAsync(sink, 0, log.With("queue", name).Logger)
	qctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(qctx)
	}()

	return q, func() {
		cancel()
		<-done
		if dropped := q.Dropped(); dropped > 0 {
			log.Warn("activity events dropped while queue was full", "queue", name, "count", dropped)
		}
	}
}
