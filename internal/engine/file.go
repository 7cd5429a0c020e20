package engine

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/celerix-dev/swissqr/internal/logger"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

const (
	recordMigrations = "migrations/records"
	logMigrations    = "migrations/logs"
)

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

// openFile opens (creating if needed) the SQLite file at path and brings its
// schema up to date.
//
// The connection is configured with:
//   - EXCLUSIVE locking, so only one process can hold the file
//   - WAL journal and FULL synchronous mode, every commit is durable
//   - a single connection, SQLite supports one writer at a time
func openFile(path, migrations string, o *options) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas to %s: %w", path, err)
	}

	if err := migrate(db, migrations, o.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA locking_mode = EXCLUSIVE",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(db *sql.DB, dir string, l *logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{l})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// gooseLogger forwards goose progress output to the service logger.
type gooseLogger struct {
	l *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

// storeName derives the entity name from a path such as "data/users.db".
func storeName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
