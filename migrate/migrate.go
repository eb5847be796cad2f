package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// migrationsFS holds embedded SQL migrations in migrate/sql.
//
//go:embed sql/*.sql
var migrationsFS embed.FS

// Options defines how to run migrations.
type Options struct {
	Driver  string         // pgx, postgres or sqlite
	DSN     string         // e.g. postgres://... or ./annotation.db for sqlite
	Command string         // up, down, status, version, up-to, down-to, redo, reset
	Target  int64          // used with up-to/down-to
	Logger  *logrus.Logger // optional logger
}

// Run executes migrations based on provided options. If Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	return Apply(migrationsFS, "schema_migrations", opts)
}

// Apply runs the goose command in opts against the sql directory of fsys,
// tracking versions in table. Seed data uses it with its own table.
func Apply(fsys embed.FS, table string, opts Options) error {
	if strings.TrimSpace(opts.Driver) == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}
	dialect, err := Dialect(opts.Driver)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(fsys)
	goose.SetTableName(table)

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	dir := "sql"
	switch strings.ToLower(strings.TrimSpace(opts.Command)) {
	case "", "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	case "up-to":
		return goose.UpTo(db, dir, opts.Target)
	case "down-to":
		return goose.DownTo(db, dir, opts.Target)
	case "redo":
		return goose.Redo(db, dir)
	case "reset":
		return goose.Reset(db, dir)
	default:
		return fmt.Errorf("unknown migration command: %s", opts.Command)
	}
}

// Dialect maps a database/sql driver name to its goose dialect.
func Dialect(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported migration driver: %s", driver)
	}
}

// OptionsFromEnv reads options from environment variables with the given
// prefix (e.g. "MIGRATE"), falling back to the MIGRATE_* values for driver
// and DSN, and to DATABASE_URL for the DSN.
//
// Env vars:
// - <P>_DRIVER: pgx (default), postgres or sqlite
// - <P>_DSN: db connection string
// - <P>_CMD: up, down, status, version, up-to, down-to, redo, reset (default: up)
// - <P>_TARGET: integer version for up-to/down-to
func OptionsFromEnv(prefix string) Options {
	get := func(name string) string {
		v := strings.TrimSpace(os.Getenv(prefix + "_" + name))
		if v == "" && prefix != "MIGRATE" && (name == "DRIVER" || name == "DSN") {
			v = strings.TrimSpace(os.Getenv("MIGRATE_" + name))
		}
		return v
	}
	opts := Options{
		Driver:  get("DRIVER"),
		DSN:     get("DSN"),
		Command: get("CMD"),
	}
	if opts.Driver == "" {
		opts.Driver = "pgx"
	}
	if opts.DSN == "" {
		opts.DSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if opts.Command == "" {
		opts.Command = "up"
	}
	if v := get("TARGET"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			opts.Target = n
		}
	}
	return opts
}

// RunFromEnv runs migrations configured by MIGRATE_* variables if
// MIGRATE_ON_START is truthy (1/true/yes/y).
func RunFromEnv(log *logrus.Logger) error {
	if !IsTruthy(os.Getenv("MIGRATE_ON_START")) {
		return nil
	}
	opts := OptionsFromEnv("MIGRATE")
	opts.Logger = log
	return Run(opts)
}

// IsTruthy reports whether an env flag is set.
func IsTruthy(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	return s == "1" || s == "true" || s == "yes" || s == "y"
}
