package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	_ "github.com/mattn/go-sqlite3"

	"github.com/syllog/syllog/internal/fact"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - schema_registry bookkeeping table
const currentSchemaVersion = 1

// Store provides durable storage for entities and facts.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db     *sql.DB
	schema *fact.Schema // set by Provision
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Schema returns the declared schema, or nil before Provision.
func (s *Store) Schema() *fact.Schema {
	return s.schema
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the bookkeeping tables and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Version 1 is fully covered by schema.sql's IF NOT EXISTS statements;
	// future incremental migrations slot in here.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// Provision creates the entity and fact tables for the declared schema and
// retains the schema for validation on later reads and writes.
//
// One table per entity type (id TEXT PRIMARY KEY plus typed columns), one
// table per storable relation (subject/object keys with foreign keys and a
// UNIQUE pair constraint). Inferred relations get no table - they are never
// persisted. Idempotent: CREATE TABLE IF NOT EXISTS throughout.
func (s *Store) Provision(ctx context.Context, schema *fact.Schema) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("provision: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, et := range schema.Entities() {
		ddl := entityDDL(et)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("provision entity %s: %w", et.Name, err)
		}
		if err := registerTable(ctx, tx, "entity", et.Name, entityTable(et.Name)); err != nil {
			return err
		}
	}

	for _, rel := range schema.Relations() {
		if rel.Inferred {
			continue
		}
		ddl := relationDDL(rel)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("provision relation %s: %w", rel.Name, err)
		}
		if err := registerTable(ctx, tx, "relation", rel.Name, relationTable(rel.Name)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("provision: commit: %w", err)
	}

	s.schema = schema
	return nil
}

func registerTable(ctx context.Context, tx *sql.Tx, kind, name, table string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO schema_registry (kind, name, tbl)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, name) DO NOTHING
	`, kind, name, table)
	if err != nil {
		return fmt.Errorf("register %s %s: %w", kind, name, err)
	}
	return nil
}

func entityDDL(et fact.EntityType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", entityTable(et.Name))
	b.WriteString("    id TEXT PRIMARY KEY")
	for _, f := range et.Fields {
		fmt.Fprintf(&b, ",\n    %s %s", f.Name, columnType(f.Kind))
	}
	b.WriteString("\n)")
	return b.String()
}

func relationDDL(rel fact.Relation) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    subject TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
    object  TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
    PRIMARY KEY (subject, object)
) WITHOUT ROWID`,
		relationTable(rel.Name),
		entityTable(rel.Subject),
		entityTable(rel.Object))
}

func columnType(k fact.FieldKind) string {
	switch k {
	case fact.KindInt:
		return "INTEGER"
	case fact.KindBool:
		return "INTEGER" // SQLite booleans are 0/1
	default:
		return "TEXT"
	}
}

// entityTable maps an entity type name to its table name.
// "Person" -> "entity_person".
func entityTable(name string) string {
	return "entity_" + snakeCase(name)
}

// relationTable maps a relation name to its table name.
// "ParentOf" -> "fact_parent_of".
func relationTable(name string) string {
	return "fact_" + snakeCase(name)
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// relationFor validates that a relation is declared and returns it.
func (s *Store) relationFor(name string) (fact.Relation, error) {
	if s.schema == nil {
		return fact.Relation{}, fmt.Errorf("store not provisioned")
	}
	rel, ok := s.schema.Relation(name)
	if !ok {
		return fact.Relation{}, fmt.Errorf("unknown relation %q", name)
	}
	return rel, nil
}

// entityTypeFor validates that an entity type is declared and returns it.
func (s *Store) entityTypeFor(name string) (fact.EntityType, error) {
	if s.schema == nil {
		return fact.EntityType{}, fmt.Errorf("store not provisioned")
	}
	et, ok := s.schema.Entity(name)
	if !ok {
		return fact.EntityType{}, fmt.Errorf("unknown entity type %q", name)
	}
	return et, nil
}
