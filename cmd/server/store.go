package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/config"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/db"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
)

const poolStatsInterval = 15 * time.Second

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logrus.Entry) (api.Store, func(), error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using the in-memory store, data is lost on restart")
		return api.NewMemoryStore(), func() {}, nil
	}
	if cfg.DBDriver == string(db.DialectSQLite) {
		if err := ensureSQLiteDir(cfg.DBDSN); err != nil {
			return nil, nil, err
		}
	}
	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, conn, cfg.MigrationsDir); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := db.NewSQLStore(conn, db.Dialect(cfg.DBDriver))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	log.WithField("driver", cfg.DBDriver).Info("database ready")

	stopStats := make(chan struct{})
	go reportPoolStats(conn, m, stopStats)
	return store, func() {
		close(stopStats)
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}, nil
}

func reportPoolStats(conn *sql.DB, m *metrics.Metrics, stop <-chan struct{}) {
	t := time.NewTicker(poolStatsInterval)
	defer t.Stop()
	for {
		m.RecordDBPoolStats(conn.Stats())
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// ensureSQLiteDir creates the parent directory of a file DSN such as
// "file:data/teambot.db?_busy_timeout=5000".
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}
