package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	payhooks "github.com/goliatone/go-payhooks"
	_ "github.com/mattn/go-sqlite3"
)

func TestSources_ReturnsPostgresAndSQLite(t *testing.T) {
	sources, err := Sources(nil)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	found := map[string]bool{}
	for _, src := range sources {
		matches, globErr := fs.Glob(src.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", src.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", src.Dialect)
		}
		found[src.Dialect] = true
	}
	if !found[DialectPostgres] || !found[DialectSQLite] {
		t.Fatalf("expected postgres and sqlite sources, got %v", found)
	}
}

func TestSources_RejectsEmptySchema(t *testing.T) {
	empty := fstest.MapFS{
		"data/sql/migrations/sqlite/README": &fstest.MapFile{Data: []byte("none")},
	}
	if _, err := Sources(empty); err == nil {
		t.Fatalf("expected error for schema without up migrations")
	}
}

func TestRegister_PassesDialectSource(t *testing.T) {
	var got Source
	src, err := Register(context.Background(), "SQLite", func(_ context.Context, src Source) error {
		got = src
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got.Dialect != DialectSQLite || src.Path != "data/sql/migrations/sqlite" {
		t.Fatalf("unexpected source %+v", got)
	}
	if _, err := fs.ReadFile(got.FS, "00001_payhooks_core_schema.up.sql"); err != nil {
		t.Fatalf("expected core schema in sqlite source: %v", err)
	}
}

func TestRegister_PropagatesRegisterError(t *testing.T) {
	_, err := Register(context.Background(), DialectPostgres, func(context.Context, Source) error {
		return errors.New("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "register postgres") {
		t.Fatalf("expected wrapped register error, got %v", err)
	}
}

func TestRegister_RejectsMissingRegistrarAndDialect(t *testing.T) {
	if _, err := Register(context.Background(), DialectSQLite, nil); err == nil {
		t.Fatalf("expected error for nil registrar")
	}
	if _, err := Register(context.Background(), "mysql", func(context.Context, Source) error { return nil }); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite3":  DialectSQLite,
		"SQLite":   DialectSQLite,
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
	}
	for driver, expected := range cases {
		dialect, err := DialectForDriver(driver)
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if dialect != expected {
			t.Fatalf("driver %q: expected %q, got %q", driver, expected, dialect)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestCoreSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := payhooks.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_payhooks_core_schema.up.sql",
		"data/sql/migrations/00001_payhooks_core_schema.down.sql",
		"data/sql/migrations/sqlite/00001_payhooks_core_schema.up.sql",
		"data/sql/migrations/sqlite/00001_payhooks_core_schema.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteCoreSchemaMigration_ApplyAndRollback(t *testing.T) {
	dsn := fmt.Sprintf("file:migrations-core-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	sqliteMigrations, err := fs.Sub(payhooks.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_payhooks_core_schema.up.sql"); err != nil {
		t.Fatalf("apply core schema: %v", err)
	}

	for _, table := range []string{"users", "orders", "webhook_events"} {
		if !tableExists(t, db, table) {
			t.Fatalf("expected table %s after up migration", table)
		}
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO orders (id, status) VALUES ('o-1', 'REFUNDED')`); err == nil {
		t.Fatalf("expected status check constraint to reject unknown status")
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO orders (id, status, user_id) VALUES ('o-2', 'PENDING', 'missing')`); err == nil {
		t.Fatalf("expected foreign key to reject unknown user")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_payhooks_core_schema.down.sql"); err != nil {
		t.Fatalf("rollback core schema: %v", err)
	}
	for _, table := range []string{"users", "orders", "webhook_events"} {
		if tableExists(t, db, table) {
			t.Fatalf("expected table %s to be dropped", table)
		}
	}
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var count int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		table,
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	return count == 1
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
