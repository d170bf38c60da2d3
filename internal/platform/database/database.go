package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the few SQL differences between PostgreSQL and SQLite
// that the stores care about. Queries are written with $N placeholders.
type Dialect struct {
	name     string
	rebind   bool
	lockRows bool
}

var (
	Postgres = Dialect{name: "postgres", lockRows: true}
	SQLite   = Dialect{name: "sqlite", rebind: true}
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Name returns the dialect name.
func (d Dialect) Name() string { return d.name }

// Rebind rewrites $N placeholders for drivers that need ?N.
func (d Dialect) Rebind(query string) string {
	if !d.rebind {
		return query
	}
	return placeholder.ReplaceAllString(query, "?$1")
}

// ForUpdate is the row-lock suffix for a SELECT. SQLite locks the whole
// database on the first write instead.
func (d Dialect) ForUpdate() string {
	if d.lockRows {
		return " FOR UPDATE"
	}
	return ""
}

// TxOptions returns the options for read-write transactions. SQLite only
// supports its default isolation.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d.lockRows {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

// Options configures Open.
type Options struct {
	URL string
	// Driver picks the PostgreSQL driver: "postgres" (lib/pq) or "pgx".
	Driver          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the store named by opts.URL and verifies the connection.
// postgres:// and postgresql:// URLs use PostgreSQL; sqlite:// and file: URLs
// use the embedded SQLite driver.
func Open(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	driver, dsn, dialect, err := resolve(opts)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 2
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}

func resolve(opts Options) (driver, dsn string, dialect Dialect, err error) {
	url := strings.TrimSpace(opts.URL)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		switch opts.Driver {
		case "", "postgres":
			return "postgres", url, Postgres, nil
		case "pgx":
			return "pgx", url, Postgres, nil
		default:
			return "", "", Dialect{}, fmt.Errorf("unsupported postgres driver %q", opts.Driver)
		}
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite", sqliteDSN(strings.TrimPrefix(url, "sqlite://")), SQLite, nil
	case strings.HasPrefix(url, "file:"):
		return "sqlite", sqliteDSN(url), SQLite, nil
	default:
		return "", "", Dialect{}, fmt.Errorf("unsupported database url %q", url)
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		ingredient_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		current_quantity NUMERIC(14,4) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS menu_item (
		menu_item_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		price NUMERIC(10,2) NOT NULL,
		category_id BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS recipe (
		menu_item_id BIGINT NOT NULL REFERENCES menu_item (menu_item_id),
		ingredient_id BIGINT NOT NULL REFERENCES inventory (ingredient_id),
		qty_per_item NUMERIC(14,4) NOT NULL CHECK (qty_per_item >= 0),
		PRIMARY KEY (menu_item_id, ingredient_id)
	)`,
}

// Migrate creates the catalog and inventory tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
