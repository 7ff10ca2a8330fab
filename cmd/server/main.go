package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-docroom/internal/api"
	"github.com/npezzotti/go-docroom/internal/config"
	"github.com/npezzotti/go-docroom/internal/database"
	"github.com/npezzotti/go-docroom/internal/server"
	"github.com/npezzotti/go-docroom/internal/stats"
	"github.com/npezzotti/go-docroom/internal/sweeper"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	socketPath     string
	staleness      time.Duration
	sweepSchedule  string
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func main() {
	// a missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalln("load .env:", err)
	}

	defaultStaleness, err := time.ParseDuration(envOr("DOCROOM_STALENESS", config.DefaultStalenessWindow.String()))
	if err != nil {
		log.Fatalln("DOCROOM_STALENESS:", err)
	}

	flag.StringVar(&addr, "addr", envOr("DOCROOM_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("DOCROOM_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("DOCROOM_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&socketPath, "socket-path", envOr("DOCROOM_SOCKET_PATH", config.DefaultSocketPath), "websocket endpoint path")
	flag.DurationVar(&staleness, "staleness", defaultStaleness, "delete rooms not saved within this window")
	flag.StringVar(&sweepSchedule, "sweep-schedule", envOr("DOCROOM_SWEEP_SCHEDULE", config.DefaultSweepSchedule), "cron schedule of the stale room sweep")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if origins := os.Getenv("DOCROOM_ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins.Set(origins)
		}
	}

	logger := log.New(os.Stderr, "[go-docroom] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, socketPath, staleness, sweepSchedule)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgRoomRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	registry := server.NewRegistry(logger, statsUpdater)
	router := server.NewRouter(registry, logger)

	roomSweeper := sweeper.NewSweeper(dbConn, cfg.StalenessWindow, cfg.SweepSchedule, logger, statsUpdater)
	if err := roomSweeper.Start(); err != nil {
		logger.Fatal("room sweeper:", err)
	}

	srv := api.NewDocRoomApp(mux, logger, router, dbConn, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	if err := roomSweeper.Stop(shutDownCtx); err != nil {
		logger.Println("room sweeper shutdown:", err)
	}

	logger.Println("closing sessions...")
	if err := registry.Shutdown(shutDownCtx); err != nil {
		logger.Println("registry shutdown:", err)
	}

	logger.Println("shutdown complete")
}
