// Package catalog provides durable storage for stored-relation
// declarations. The compiler's in-memory registry is rebuilt from the
// catalog at session start, so relation schemas survive across runs.
//
// Uses SQLite with WAL mode for concurrent read access.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/stratum/internal/compile"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// ErrNotFound is returned when a relation is absent from the catalog.
var ErrNotFound = errors.New("relation not found in catalog")

// Catalog is a handle to the relation metadata database.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens a catalog database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times on the same path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
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
	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

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

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Record is one catalog entry. ID is a UUIDv7 assigned at insertion, so
// records sort by creation time.
type Record struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Arity     int                 `json:"arity"`
	Keys      []compile.ColumnDef `json:"keys"`
	NonKeys   []compile.ColumnDef `json:"non_keys"`
	CreatedAt string              `json:"created_at"`
}

// PutRelation persists a relation declaration and returns its record ID.
// Persisting a name that already exists is an error; drop it first.
func (c *Catalog) PutRelation(ctx context.Context, name string, arity int, keys, nonKeys []compile.ColumnDef) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("put relation: %w", err)
	}
	keysJSON, err := marshalColumns(keys)
	if err != nil {
		return "", fmt.Errorf("put relation: %w", err)
	}
	nonKeysJSON, err := marshalColumns(nonKeys)
	if err != nil {
		return "", fmt.Errorf("put relation: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO relations (id, name, arity, keys, non_keys)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), name, arity, keysJSON, nonKeysJSON)
	if err != nil {
		return "", fmt.Errorf("put relation %q: %w", name, err)
	}
	return id.String(), nil
}

// GetRelation fetches one relation by name. Returns ErrNotFound if the
// name is not in the catalog.
func (c *Catalog) GetRelation(ctx context.Context, name string) (*Record, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, name, arity, keys, non_keys, created_at
		FROM relations WHERE name = ?
	`, name)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get relation %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get relation %q: %w", name, err)
	}
	return rec, nil
}

// ListRelations returns all catalog entries ordered by name.
func (c *Catalog) ListRelations(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, arity, keys, non_keys, created_at
		FROM relations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list relations: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return out, nil
}

// DeleteRelation removes one relation by name. Deleting an absent name
// returns ErrNotFound.
func (c *Catalog) DeleteRelation(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM relations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete relation %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete relation %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete relation %q: %w", name, ErrNotFound)
	}
	return nil
}

// LoadInto registers every cataloged relation with the compiler and
// returns the number registered.
func (c *Catalog) LoadInto(ctx context.Context, comp *compile.Compiler) (int, error) {
	records, err := c.ListRelations(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if _, err := comp.CreateRelationWithSchema(rec.Name, rec.Arity, rec.Keys, rec.NonKeys); err != nil {
			return 0, fmt.Errorf("load relation %q: %w", rec.Name, err)
		}
	}
	return len(records), nil
}

func marshalColumns(cols []compile.ColumnDef) (string, error) {
	if cols == nil {
		cols = []compile.ColumnDef{}
	}
	data, err := json.Marshal(cols)
	if err != nil {
		return "", fmt.Errorf("marshaling columns: %w", err)
	}
	return string(data), nil
}

func scanRecord(scan func(...any) error) (*Record, error) {
	var rec Record
	var keysJSON, nonKeysJSON string
	if err := scan(&rec.ID, &rec.Name, &rec.Arity, &keysJSON, &nonKeysJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keysJSON), &rec.Keys); err != nil {
		return nil, fmt.Errorf("unmarshaling key columns: %w", err)
	}
	if err := json.Unmarshal([]byte(nonKeysJSON), &rec.NonKeys); err != nil {
		return nil, fmt.Errorf("unmarshaling non-key columns: %w", err)
	}
	return &rec, nil
}
