package seed

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/migrate"
)

// seedFS holds embedded SQL seed files in seed/sql: the role and permission
// catalogue and the default grants.
//
//go:embed sql/*.sql
var seedFS embed.FS

// Options defines how to run seed migrations.
type Options = migrate.Options

// Run applies seed files, tracked separately from schema migrations. If
// Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	if !hasValidSeedFiles(seedFS, opts.Logger) {
		return nil
	}
	return migrate.Apply(seedFS, "seed_migrations", opts)
}

// hasValidSeedFiles checks for goose-named files (VERSION_name.sql).
func hasValidSeedFiles(fsys fs.ReadDirFS, log *logrus.Logger) bool {
	entries, err := fsys.ReadDir("sql")
	if err != nil {
		if log != nil {
			log.Info("no seed SQL directory found, skipping seed")
		}
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.Index(name, "_") > 0 {
			return true
		}
	}
	if log != nil {
		log.Info("no valid seed SQL files found (files must be named like 00001_name.sql), skipping seed")
	}
	return false
}

// RunFromEnv seeds when SEED_ON_START is truthy. SEED_* variables fall back
// to MIGRATE_* for driver and DSN.
func RunFromEnv(log *logrus.Logger) error {
	if !migrate.IsTruthy(os.Getenv("SEED_ON_START")) {
		return nil
	}
	opts := migrate.OptionsFromEnv("SEED")
	opts.Logger = log
	return Run(opts)
}
