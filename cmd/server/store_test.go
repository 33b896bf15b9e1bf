package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/config"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/db"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestEnsureSQLiteDir(t *testing.T) {
	root := t.TempDir()
	dsn := "file:" + filepath.Join(root, "nested", "bot.db") + "?_busy_timeout=5000"
	if err := ensureSQLiteDir(dsn); err != nil {
		t.Fatalf("ensureSQLiteDir: %v", err)
	}
	if fi, err := os.Stat(filepath.Join(root, "nested")); err != nil || !fi.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
	if err := ensureSQLiteDir("file::memory:?cache=shared"); err != nil {
		t.Fatalf("memory dsn: %v", err)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	store, closeFn, err := openStore(context.Background(), &config.Config{DBDriver: "memory"}, nil, quietLog())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*api.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite3",
		DBDSN:    "file:" + filepath.Join(t.TempDir(), "data", "bot.db") + "?_busy_timeout=5000",
	}
	store, closeFn, err := openStore(context.Background(), cfg, nil, quietLog())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*db.SQLStore); !ok {
		t.Fatalf("expected SQL store, got %T", store)
	}
	tz, err := store.GetOrganizationTimezone(context.Background(), "missing")
	if err != nil || tz != "" {
		t.Fatalf("unexpected timezone %q err=%v", tz, err)
	}
}
