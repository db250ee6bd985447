package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackmint/keysmith/internal/server"
	"github.com/stackmint/keysmith/internal/service"
)

const banner = `
 _  _________   _____ __  __ ___ _____ _  _
| |/ / __| \ \ / / __|  \/  |_ _|_   _| || |
| ' <| _|  \ V /\__ \ |\/| || |  | | | __ |
|_|\_\___|  |_| |___/_|  |_|___| |_| |_||_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Keysmith API server",
		Long:  "Start the HTTP server that exposes the registration, validation, and admin endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg := loadConfig()

	logLevel := parseLogLevel(cfg.Logging.Level)
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", cfg.Store.Driver, "data_dir", cfg.Store.DataDir)

	keySvc := service.NewKeyService(st, logger)
	authSvc := service.NewAuthService(st, jwtSecret(cfg), sessionTTL(cfg.Auth.SessionTTL))

	hasAdmin, err := st.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: keysmith admin create, or POST /admin/register")
	}

	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
	}

	srv := server.New(srvCfg, st, keySvc, authSvc, logger)

	fmt.Printf("→ Keysmith %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func sessionTTL(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return service.DefaultSessionTTL
	}
	return d
}
