// Package main is the entry point for the onboarding API server.
//
// main stays minimal: read configuration from the environment, build the
// logger, hand everything to internal/server. All real logic lives in the
// imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/investoai/onboarding-api/internal/analysis"
	"github.com/investoai/onboarding-api/internal/server"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	port := 3001
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/onboarding.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	analysisURL := os.Getenv("ANALYSIS_API_URL")
	if analysisURL == "" {
		analysisURL = analysis.DefaultURL
	}

	corsOrigin := os.Getenv("CORS_ALLOW_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	cfg := server.Config{
		Port:            port,
		DBPath:          dbPath,
		AnalysisAPIURL:  analysisURL,
		CORSAllowOrigin: corsOrigin,
		ClerkJWTSecret:  os.Getenv("CLERK_JWT_SECRET"),
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
