package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/davidweatherstone/move-my-pallets/db"
	"github.com/davidweatherstone/move-my-pallets/db/migrations"
	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/internal/handlers"
)

func main() {
	_ = godotenv.Load()

	logger, err := newLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer logger.Sync()

	connString := os.Getenv("POSTGRES_CONN")
	if connString == "" {
		logger.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", connString)
	if err != nil {
		logger.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Up(context.Background(), dbConn.DB); err != nil {
		logger.Fatal("cannot run migrations", zap.Error(err))
	}

	store := db.NewStorage(dbConn)
	eng := engine.New(store, logger)
	h := handlers.NewHandler(eng, store, logger)

	serverAddr := os.Getenv("SERVER_ADDRESS")
	if serverAddr == "" {
		serverAddr = "0.0.0.0:8080"
	}

	logger.Info("starting server", zap.String("addr", serverAddr))
	if err := http.ListenAndServe(serverAddr, h.Routes()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(levelStr string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if levelStr != "" {
		if err := level.Set(strings.ToLower(levelStr)); err != nil {
			level = zapcore.InfoLevel
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
