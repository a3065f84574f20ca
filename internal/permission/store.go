package permission

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/opmodel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed username-to-role table that survives process
// restarts. The Dispatcher's role persister writes committed role changes
// here; nothing in this module reads it back at join time, so a
// re-launched host still gives each joiner Viewer. Adapted from the teacher's
// pkg/database.Database, which persisted document text the same way:
// open, migrate, then narrow CRUD methods around one table.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if absent) the SQLite database at uri and
// runs pending migrations.
func OpenStore(uri string) (*Store, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("permission: open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("permission: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// RoleOf returns the persisted role for username, or (Viewer, false) if
// no row exists yet.
func (s *Store) RoleOf(username string) (opmodel.Role, bool) {
	var role int
	err := s.db.QueryRow("SELECT role FROM user_role WHERE username = ?", username).Scan(&role)
	if err == sql.ErrNoRows {
		return opmodel.Viewer, false
	}
	if err != nil {
		logx.Error("permission: query role for %q: %v", username, err)
		return opmodel.Viewer, false
	}
	return opmodel.Role(role), true
}

// SetRole persists username's role, insert-or-update.
func (s *Store) SetRole(username string, role opmodel.Role) error {
	_, err := s.db.Exec(`
		INSERT INTO user_role (username, role, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			role = excluded.role,
			updated_at = excluded.updated_at
	`, username, int(role), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("permission: set role for %q: %w", username, err)
	}
	return nil
}

// migrate applies every pending *.sql file under migrations/, tracked by
// a schema_migrations table, identical in shape to the teacher's
// database.migrate but its own embed.FS so this package stays
// self-contained.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	applied := 0
	for i, entry := range entries {
		version := i + 1
		if version <= currentVersion {
			continue
		}
		filename := entry.Name()
		content, err := migrationsFS.ReadFile(filepath.Join("migrations", filename))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", filename, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, filename, applied_at) VALUES (?, ?, ?)",
			version, filename, time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", filename, err)
		}
		applied++
	}

	if applied > 0 {
		logx.Info("permission: applied %d migration(s)", applied)
	} else {
		logx.Debug("permission: schema up to date at version %d", currentVersion)
	}
	return nil
}
