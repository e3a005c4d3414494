// Package main applies the law store schema (law_config, player_law_states
// and crime_records) to the PostgreSQL database named in the law server's
// config. Other storage backends create their schema on open.
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/config"
	"github.com/cory-johannsen/enforcer/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to the law server configuration file")
	dir := flag.String("dir", "migrations", "directory holding the law schema migrations")
	direction := flag.String("direction", "up", "up, down or status")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "law-migrate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Storage.Backend != config.BackendPostgres {
		logger.Fatal("law store is not postgres; nothing to migrate",
			zap.String("backend", cfg.Storage.Backend),
		)
	}

	m, err := migrate.New("file://"+*dir, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("opening law schema migrations", zap.String("dir", *dir), zap.Error(err))
	}
	defer m.Close()

	switch *direction {
	case "status":
		err = nil
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Fatal("direction must be up, down or status", zap.String("direction", *direction))
	}
	changed := true
	if errors.Is(err, migrate.ErrNoChange) || *direction == "status" {
		changed, err = false, nil
	}
	if err != nil {
		logger.Fatal("law schema migration failed", zap.String("direction", *direction), zap.Error(err))
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		logger.Fatal("reading law schema version", zap.Error(verr))
	}
	logger.Info("law schema",
		zap.String("direction", *direction),
		zap.Bool("changed", changed),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}
