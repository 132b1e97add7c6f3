package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	migrationsDir = "sql/migrations"
	// migrationLockKey — ключ session-level advisory lock, сериализующий параллельные запуски мигратора.
	migrationLockKey   = int64(0x464f4f44)
	migrationLockWait  = 10 * time.Second
	schemaMigrationDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed sql/migrations/*.sql
	embeddedMigrations embed.FS

	migrationFileRe = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)
)

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// MigrationStatus описывает состояние схемы.
type MigrationStatus struct {
	CurrentVersion int64
	Applied        int
	Pending        []string
}

// MigrateUp применяет up-миграции. steps=0 означает "все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigrations(ctx, func(conn *sql.Conn, all []migration) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		done := 0
		for _, m := range all {
			if _, ok := applied[m.Version]; ok {
				continue
			}
			if err := execMigration(ctx, conn, m, m.Up, recordApplied); err != nil {
				return err
			}
			done++
			if steps > 0 && done >= steps {
				break
			}
		}
		return nil
	})
}

// MigrateDown откатывает последние steps миграций; steps<=0 трактуется как один шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}

	return s.runMigrations(ctx, func(conn *sql.Conn, all []migration) error {
		byVersion := make(map[int64]migration, len(all))
		for _, m := range all {
			byVersion[m.Version] = m
		}

		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		versions := make([]int64, 0, len(applied))
		for v := range applied {
			versions = append(versions, v)
		}
		sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
		if len(versions) > steps {
			versions = versions[:steps]
		}

		for _, v := range versions {
			m, ok := byVersion[v]
			if !ok {
				return fmt.Errorf("cannot rollback unknown migration version %d", v)
			}
			if err := execMigration(ctx, conn, m, m.Down, forgetApplied); err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает текущую версию, число применённых и список ожидающих миграций.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	if s == nil || s.db == nil {
		return MigrationStatus{}, errStoreNotInitialized
	}

	all, err := loadMigrations(embeddedMigrations)
	if err != nil {
		return MigrationStatus{}, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	conn, err := s.db.Conn(queryCtx)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(queryCtx, schemaMigrationDDL); err != nil {
		return MigrationStatus{}, fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := appliedVersions(queryCtx, conn)
	if err != nil {
		return MigrationStatus{}, err
	}

	status := MigrationStatus{Applied: len(applied)}
	for _, m := range all {
		if _, ok := applied[m.Version]; ok {
			if m.Version > status.CurrentVersion {
				status.CurrentVersion = m.Version
			}
			continue
		}
		status.Pending = append(status.Pending, m.String())
	}
	return status, nil
}

func (s *Store) runMigrations(ctx context.Context, run func(conn *sql.Conn, all []migration) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	all, err := loadMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, migrationLockWait)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, schemaMigrationDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	return run(conn, all)
}

type bookkeeping func(ctx context.Context, tx *sql.Tx, m migration) error

func recordApplied(ctx context.Context, tx *sql.Tx, m migration) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`,
		m.Version, m.Name)
	return err
}

func forgetApplied(ctx context.Context, tx *sql.Tx, m migration) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
	return err
}

// execMigration выполняет тело миграции и запись в schema_migrations в одной транзакции.
func execMigration(ctx context.Context, conn *sql.Conn, m migration, body string, book bookkeeping) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %s: %w", m, err)
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", m, err)
	}
	if err := book(ctx, tx, m); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update schema_migrations for %s: %w", m, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]struct{}, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]struct{})
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		result[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return result, nil
}

// loadMigrations собирает пары up/down из fsys и сортирует их по версии.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		parts := migrationFileRe.FindStringSubmatch(name)
		if parts == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", name)
		}

		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", name, err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", name)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: parts[2]}
			byVersion[version] = m
		}
		if m.Name != parts[2] {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, parts[2])
		}

		target := &m.Up
		if parts[3] == "down" {
			target = &m.Down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = body
	}

	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	result := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s must have both up and down files", m)
		}
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}
