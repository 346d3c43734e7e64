package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/service"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

var (
	configPath string
	envFile    string
	port       int
	dbPath     string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: search $HOME/.config/vtunedna and .)")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file loaded before the environment is read")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides server.port)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides database.path)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	loader := config.NewLoader(config.WithConfigFile(configPath), config.WithEnvFile(envFile))
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.ApplyLogging(log)
	if file := loader.ConfigFileUsed(); file != "" {
		log.Infof("Using config %s", file)
	}

	if loader.Watch(func(next *config.Config) {
		next.ApplyLogging(log)
		log.Infof("Log level is now %s", log.Level())
	}) {
		log.Debug("Watching config file for log level changes")
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty; every bearer token will be rejected")
	}

	db, err := storage.NewDBClient(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if log.Level() > logger.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := service.NewCatalogService(db)
	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	server := NewServer(svc, db, authn, cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		db.Close()
		os.Exit(1)
	}
	log.Info("Server stopped")
}
