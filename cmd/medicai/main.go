// Command medicai runs the MedicAI WhatsApp assistant: the webhook server,
// the outbound messaging backend and the minute scanner for reminders and
// pharmacy pickups.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/api"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/dispatcher"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/flow"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/lockfile"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/messaging"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/notify"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/scanner"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/twiliowhatsapp"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/whatsapp"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// Default configuration constants
const (
	// DefaultStateDir holds the lock file and, by default, the databases.
	DefaultStateDir = "/var/lib/medicai"
	// DefaultDBFileName is the application SQLite database inside the state directory.
	DefaultDBFileName = "medicai.db"
	// DefaultWhatsmeowDBFileName is the whatsmeow session database inside the state directory.
	DefaultWhatsmeowDBFileName = "whatsmeow.db"
)

// Messaging backends.
const (
	BackendCloud     = "cloud"
	BackendTwilio    = "twilio"
	BackendWhatsmeow = "whatsmeow"
)

// Config holds the environment configuration. Names match the deployment's
// existing variables, hence no prefix.
type Config struct {
	Backend       string        `envconfig:"MEDICAI_BACKEND" default:"cloud"`
	StateDir      string        `envconfig:"MEDICAI_STATE_DIR" default:"/var/lib/medicai"`
	DBDSN         string        `envconfig:"MEDICAI_DB"`
	WhatsmeowDSN  string        `envconfig:"WHATSAPP_DB_DSN"`
	Port          string        `envconfig:"PORT" default:"5000"`
	Timezone      string        `envconfig:"APP_TZ" default:"America/Santiago"`
	LogLevel      string        `envconfig:"MEDICAI_LOG_LEVEL" default:"debug"`
	SessionTTL    time.Duration `envconfig:"MEDICAI_SESSION_TTL"`
	ReplyPause    time.Duration `envconfig:"MEDICAI_REPLY_PAUSE" default:"1s"`
	WhatsAppToken string        `envconfig:"WHATSAPP_TOKEN"`
	WhatsAppURL   string        `envconfig:"WHATSAPP_URL"`
	VerifyToken   string        `envconfig:"VERIFY_TOKEN"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioWebhookURL string `envconfig:"TWILIO_WEBHOOK_URL"`

	EmailHost      string `envconfig:"EMAIL_HOST" default:"smtp.gmail.com"`
	EmailPort      int    `envconfig:"EMAIL_PORT" default:"587"`
	EmailUser      string `envconfig:"EMAIL_USER"`
	EmailPass      string `envconfig:"EMAIL_PASS"`
	EmailFrom      string `envconfig:"EMAIL_FROM"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	StaffEmail     string `envconfig:"MEDICAI_STAFF_EMAIL"`

	// Login options for the whatsmeow backend; flags only.
	QROutput    string `ignored:"true"`
	NumericCode bool   `ignored:"true"`
}

func main() {
	config, err := loadEnvironmentConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], &config); err != nil {
		os.Exit(2)
	}
	initializeLogger(config.LogLevel)

	lock, err := lockfile.Acquire(config.StateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping MedicAI", "backend", config.Backend, "state_dir", config.StateDir, "port", config.Port)
	if err := run(ctx, config); err != nil {
		slog.Error("MedicAI failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("MedicAI exited successfully")
}

// loadEnvironmentConfig loads .env, decodes the environment and fills the
// defaults that depend on other fields.
func loadEnvironmentConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
	}
	if config.WhatsmeowDSN == "" {
		config.WhatsmeowDSN = whatsmeowDefaultDSN(config.StateDir)
	}
	return config, nil
}

func whatsmeowDefaultDSN(stateDir string) string {
	return "file:" + filepath.Join(stateDir, DefaultWhatsmeowDBFileName) + "?_foreign_keys=on"
}

// parseCommandLineFlags lets flags override the environment. File DSNs that
// were derived from the state directory follow a -state-dir override.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config *Config) error {
	envStateDir := config.StateDir
	derivedDB := config.DBDSN == filepath.Join(envStateDir, DefaultDBFileName)
	derivedWA := config.WhatsmeowDSN == whatsmeowDefaultDSN(envStateDir)

	fs.StringVar(&config.Backend, "backend", config.Backend, "messaging backend: cloud, twilio or whatsmeow (overrides $MEDICAI_BACKEND)")
	fs.StringVar(&config.StateDir, "state-dir", config.StateDir, "state directory for MedicAI data (overrides $MEDICAI_STATE_DIR)")
	fs.StringVar(&config.DBDSN, "db", config.DBDSN, "SQLite path or Postgres DSN (overrides $MEDICAI_DB)")
	fs.StringVar(&config.Port, "port", config.Port, "HTTP port (overrides $PORT)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error (overrides $MEDICAI_LOG_LEVEL)")
	fs.StringVar(&config.QROutput, "qr-output", "", "path to write the whatsmeow login QR code")
	fs.BoolVar(&config.NumericCode, "numeric-code", false, "use a numeric whatsmeow login code instead of a QR code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if config.StateDir != envStateDir {
		if derivedDB && config.DBDSN == filepath.Join(envStateDir, DefaultDBFileName) {
			config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		}
		if derivedWA {
			config.WhatsmeowDSN = whatsmeowDefaultDSN(config.StateDir)
		}
	}
	config.Backend = strings.ToLower(strings.TrimSpace(config.Backend))
	return nil
}

// initializeLogger installs a text slog handler at the named level.
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// buildStoreOptions selects the store backend from the DSN.
func buildStoreOptions(config Config) []store.Option {
	if store.DetectDSNType(config.DBDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return []store.Option{store.WithPostgresDSN(config.DBDSN)}
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", config.DBDSN)
	return []store.Option{store.WithSQLiteDSN(config.DBDSN)}
}

// buildMessagingService creates the configured backend. The returned handler
// is non-nil only for backends that receive webhooks outside the Cloud API
// route.
func buildMessagingService(config Config) (messaging.Service, http.HandlerFunc, error) {
	switch config.Backend {
	case BackendCloud:
		svc, err := messaging.NewCloudService(
			messaging.WithCloudToken(config.WhatsAppToken),
			messaging.WithCloudURL(config.WhatsAppURL),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("cloud backend: %w", err)
		}
		return svc, nil, nil
	case BackendTwilio:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(config.TwilioAccountSID),
			twiliowhatsapp.WithAuthToken(config.TwilioAuthToken),
			twiliowhatsapp.WithFromWhats(config.TwilioFrom),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("twilio backend: %w", err)
		}
		svc := messaging.NewTwilioService(client,
			messaging.WithSignatureValidator(twiliowhatsapp.NewSignatureValidator(config.TwilioAuthToken)),
			messaging.WithWebhookURL(config.TwilioWebhookURL),
		)
		return svc, svc.WebhookHandler, nil
	case BackendWhatsmeow:
		opts := []whatsapp.Option{whatsapp.WithDBDSN(config.WhatsmeowDSN)}
		if config.QROutput != "" {
			opts = append(opts, whatsapp.WithQRCodeOutput(config.QROutput))
		}
		if config.NumericCode {
			opts = append(opts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("whatsmeow backend: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown messaging backend %q", config.Backend)
	}
}

// run wires every component and blocks until ctx is canceled or a
// component fails.
func run(ctx context.Context, config Config) error {
	st, err := store.New(buildStoreOptions(config)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	svc, twilioHook, err := buildMessagingService(config)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	loc := clock.LoadLocation(config.Timezone)
	clk := clock.System(loc)
	var sessionOpts []session.Option
	if config.SessionTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithTTL(config.SessionTTL))
	}
	sessions := session.NewRegistry(sessionOpts...)
	reminders := reminder.NewDirectory()

	flows := flow.NewSet(flow.Dependencies{
		Sessions:  sessions,
		Reminders: reminders,
		Pickups:   st,
		Clock:     clk,
	})
	disp := dispatcher.New(dispatcher.Dependencies{
		Flows:     flows,
		Sessions:  sessions,
		Reminders: reminders,
		Store:     st,
		Clock:     clk,
		Metrics:   m,
	})
	deliverer := messaging.NewDeliverer(svc, messaging.WithReplyPause(config.ReplyPause), messaging.WithMetrics(m))

	scanOpts := []scanner.Option{scanner.WithLocation(loc), scanner.WithMetrics(m)}
	if config.StaffEmail != "" {
		email := notify.Select(
			notify.SendGridConfig{APIKey: config.SendGridAPIKey, FromEmail: config.EmailFrom},
			notify.SMTPConfig{Host: config.EmailHost, Port: config.EmailPort, Username: config.EmailUser, Password: config.EmailPass, From: config.EmailFrom},
		)
		scanOpts = append(scanOpts, scanner.WithStaffEmail(config.StaffEmail, email))
	}
	scan := scanner.New(reminders, st, svc, clk, scanOpts...)

	apiOpts := []api.Option{
		api.WithAddr(":" + config.Port),
		api.WithVerifyToken(config.VerifyToken),
		api.WithGatherer(registry),
		api.WithMetrics(m),
	}
	if twilioHook != nil {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(twilioHook))
	}
	server := api.NewServer(disp, deliverer, st, apiOpts...)

	g, gctx := errgroup.WithContext(ctx)
	if err := svc.Start(gctx); err != nil {
		return fmt.Errorf("failed to start messaging backend: %w", err)
	}

	g.Go(server.Start)
	g.Go(func() error { return scan.Run(gctx) })
	g.Go(func() error {
		server.Consume(gctx, svc.Inbound())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if stopErr := svc.Stop(); stopErr != nil {
			slog.Warn("run: messaging backend stop failed", "error", stopErr)
		}
		if ws, ok := svc.(*messaging.WhatsAppService); ok {
			ws.Disconnect()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
