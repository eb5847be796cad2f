package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestDialect(t *testing.T) {
	cases := map[string]string{"pgx": "postgres", "postgres": "postgres", "sqlite": "sqlite3", " SQLite3 ": "sqlite3"}
	for in, want := range cases {
		got, err := Dialect(in)
		if err != nil || got != want {
			t.Fatalf("Dialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := Dialect("mysql"); err == nil {
		t.Fatal("expected mysql to be rejected")
	}
}

func TestRunNoopWithoutDSN(t *testing.T) {
	if err := Run(Options{Driver: "pgx"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("MIGRATE_DRIVER", "")
	t.Setenv("MIGRATE_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://iam@db/iam")
	t.Setenv("SEED_DSN", "")
	t.Setenv("SEED_DRIVER", "sqlite")
	t.Setenv("SEED_TARGET", "3")
	t.Setenv("SEED_CMD", "")

	opts := OptionsFromEnv("SEED")
	if opts.Driver != "sqlite" || opts.DSN != "postgres://iam@db/iam" || opts.Command != "up" || opts.Target != 3 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	t.Setenv("MIGRATE_DSN", "postgres://migrate@db/iam")
	if got := OptionsFromEnv("SEED").DSN; got != "postgres://migrate@db/iam" {
		t.Fatalf("SEED_DSN should fall back to MIGRATE_DSN, got %q", got)
	}
	if got := OptionsFromEnv("MIGRATE").Driver; got != "pgx" {
		t.Fatalf("default driver = %q", got)
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "y"} {
		if !IsTruthy(v) {
			t.Fatalf("%q should be truthy", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no"} {
		if IsTruthy(v) {
			t.Fatalf("%q should not be truthy", v)
		}
	}
}

func TestSchemaAppliesOnSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "schema.db")
	if err := Run(Options{Driver: "sqlite", DSN: dsn, Command: "up"}); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	for _, table := range []string{"users", "roles", "permissions", "user_roles", "role_permissions",
		"tissue_types", "samples", "form_details", "image_annotations"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
	if err := Run(Options{Driver: "sqlite", DSN: dsn, Command: "reset"}); err != nil {
		t.Fatalf("migrate reset: %v", err)
	}
}
