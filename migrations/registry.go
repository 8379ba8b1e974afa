package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	payhooks "github.com/goliatone/go-payhooks"
	persistence "github.com/goliatone/go-persistence-bun"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel names the payhooks schema in migration logs.
	SourceLabel = "go-payhooks"

	rootPath = "data/sql/migrations"
)

// Source is the migration directory for one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registrar hands a resolved source to a migration runner.
type Registrar func(ctx context.Context, src Source) error

// Sources returns the postgres and sqlite schema directories found in root,
// defaulting to the embedded payhooks schema. Every source must carry at least
// one *.up.sql file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = payhooks.GetMigrationsFS()
	}
	postgres, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqlite, err := fs.Sub(postgres, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite schema: %w", err)
	}
	sources := []Source{
		{Dialect: DialectPostgres, Path: rootPath, FS: postgres},
		{Dialect: DialectSQLite, Path: rootPath + "/" + DialectSQLite, FS: sqlite},
	}
	for _, src := range sources {
		matches, err := fs.Glob(src.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", src.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s schema %q has no *.up.sql files", src.Dialect, src.Path)
		}
	}
	return sources, nil
}

// SourceFor returns the embedded schema for dialect.
func SourceFor(dialect string) (Source, error) {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	sources, err := Sources(nil)
	if err != nil {
		return Source{}, err
	}
	for _, src := range sources {
		if src.Dialect == dialect {
			return src, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

// Register resolves the schema for dialect and passes it to register.
func Register(ctx context.Context, dialect string, register Registrar) (Source, error) {
	if register == nil {
		return Source{}, fmt.Errorf("migrations: registrar is required")
	}
	src, err := SourceFor(dialect)
	if err != nil {
		return Source{}, err
	}
	if err := register(ctx, src); err != nil {
		return src, fmt.Errorf("migrations: register %s (%s): %w", src.Dialect, src.Path, err)
	}
	return src, nil
}

// DialectForDriver maps a database/sql driver name onto a migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// RegisterClient registers the schema for dialect with a persistence client.
// The caller still runs client.Migrate.
func RegisterClient(ctx context.Context, client *persistence.Client, dialect string) (Source, error) {
	if client == nil {
		return Source{}, fmt.Errorf("migrations: persistence client is required")
	}
	return Register(ctx, dialect, func(_ context.Context, src Source) error {
		client.RegisterSQLMigrations(src.FS)
		return nil
	})
}
