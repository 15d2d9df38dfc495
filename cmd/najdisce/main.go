// Command najdisce runs the lost-and-found web app.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/erazemk/najdisce/internal/api"
	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/config"
	"github.com/erazemk/najdisce/internal/db"
	"github.com/erazemk/najdisce/internal/live"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/report"
	"github.com/erazemk/najdisce/internal/store"
	"github.com/erazemk/najdisce/internal/web"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags are the command-line overrides. They win over the config file and
// the environment.
type flags struct {
	config        string
	db            string
	addr          string
	log           string
	logLevel      string
	jwtSecret     string
	secureCookies bool
}

func rootCmd() *cobra.Command {
	var f flags

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runServe(cfg, &f)
		},
	}
	serve.Flags().StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	serve.Flags().StringVar(&f.jwtSecret, "jwt-secret", "", "session signing key (default: stored in the database)")
	serve.Flags().BoolVar(&f.secureCookies, "secure-cookies", false, "mark session cookies Secure (behind HTTPS)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runInit(cfg.DBPath)
		},
	}

	root := &cobra.Command{
		Use:   "najdisce",
		Short: "Lost and found board",
		Long: `Najdisce is a lost-and-found board. Visitors browse lost and found
items; signed-in users and guests report new ones.

Configuration is read from an optional YAML file, then NAJDISCE_*
environment variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&f.config, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVarP(&f.db, "db", "d", "", "SQLite database path (default najdisce.sqlite3)")
	root.PersistentFlags().StringVarP(&f.log, "log", "l", "", "also append logs to this file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	// The root command runs serve, so it accepts serve's flags too.
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, initCmd)
	return root
}

// loadConfig layers the explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("db") {
		cfg.DBPath = f.db
	}
	if set("log") {
		cfg.LogPath = f.log
	}
	if cmd.Flags().Lookup("addr") != nil && set("addr") {
		cfg.Addr = f.addr
	}
	if cmd.Flags().Lookup("jwt-secret") != nil && set("jwt-secret") {
		cfg.JWTSecret = f.jwtSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runInit(dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database file %s already exists", dbPath)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		database.Close()
		os.Remove(dbPath)
		return fmt.Errorf("initializing schema: %w", err)
	}
	if _, err := store.GetJWTSecret(context.Background(), database); err != nil {
		return fmt.Errorf("generating session key: %w", err)
	}

	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	return nil
}

func runServe(cfg *config.Config, f *flags) error {
	level, err := parseLevel(f.logLevel)
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(cfg.LogPath, level)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Idempotent, so a fresh path needs no separate init.
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// No report is in flight yet, so any item without its reporter copy was
	// cut off by a crash.
	if n, err := store.BackfillUserItems(context.Background(), database); err != nil {
		return err
	} else if n > 0 {
		slog.Warn("restored missing user item copies", "count", n)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(context.Background(), database)
		if err != nil {
			return fmt.Errorf("loading session key: %w", err)
		}
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			slog.Info("error reporting enabled", "environment", cfg.Sentry.Environment)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	items := report.SQLStore{DB: database}
	hub := live.NewHub(report.Loader(items), m)
	reports := report.New(items, report.Options{
		Hub:                 hub,
		Metrics:             m,
		CopyAttempts:        cfg.Report.CopyAttempts,
		CopyInitialInterval: cfg.Report.CopyInitialInterval,
	})
	authSvc := auth.NewService(database, jwtSecret)

	apiRouter := api.NewRouter(authSvc, reports, api.Options{
		Metrics: m,
		Images:  cfg.Images.Options(),
	})
	webRouter, err := web.NewRouter(authSvc, reports, web.Options{
		Metrics:       m,
		Images:        cfg.Images.Options(),
		SecureCookies: f.secureCookies,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", api.HealthHandler(database))
	mux.Handle("/", webRouter)

	var handler http.Handler = mux
	if cfg.Sentry.DSN != "" {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}
	handler = api.LoggingMiddleware(handler)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server started", "addr", ln.Addr().String())
	if err := serve(ctx, server, ln); err != nil {
		return err
	}

	// Live streams are hijacked connections that Shutdown does not wait for.
	hub.Close()
	reports.Wait()
	slog.Info("server stopped, closing database")
	return nil
}

// serve runs server on ln until ctx is done, then shuts it down. It returns
// only after in-flight requests have finished or the shutdown timed out.
func serve(ctx context.Context, server *http.Server, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	// Serve returns as soon as Shutdown starts.
	<-drained
	return nil
}
