// Package docstore is a small document store on SQLite. It is the update
// backend the guard wraps in the binaries and in end-to-end tests.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/safeupdate/internal/model"
)

// IDField is the primary key field of every document.
const IDField = "_id"

var (
	// ErrNotFound is returned by FindOne when nothing matches.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrDuplicateID is returned when inserting an _id that already exists.
	ErrDuplicateID = errors.New("docstore: duplicate _id")
)

// DB is a SQLite database holding named collections of JSON documents.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer; one connection also keeps
	// ":memory:" pointing at the same database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	d := &DB{db: db, path: path}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);`)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the path the database was opened with.
func (d *DB) Path() string {
	return d.path
}

// Collection returns a handle for the named collection. Collections exist
// implicitly once they hold a document.
func (d *DB) Collection(name string) *Collection {
	return &Collection{db: d, name: name}
}

// Collections lists the names of collections that hold documents.
func (d *DB) Collections(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("docstore: list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("docstore: list collections: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ByID returns the selector {_id: id}.
func ByID(id string) model.Document {
	return model.Document{IDField: id}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type stored struct {
	id  string
	doc model.Document
}

// scan loads documents of collection matching selector, in _id order.
// limit <= 0 means no limit.
func scan(ctx context.Context, q queryer, collection string, selector model.Document, limit int) ([]stored, error) {
	if err := validateSelector(selector); err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	query := `SELECT id, body FROM documents WHERE collection = ?`
	args := []any{collection}
	if id, ok := selector[IDField].(string); ok {
		query += ` AND id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []stored
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", collection, err)
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("docstore: decode %s/%s: %w", collection, id, err)
		}
		if !matches(doc, selector) {
			continue
		}
		out = append(out, stored{id: id, doc: doc})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, rows.Err()
}

func write(ctx context.Context, q queryer, collection, id string, doc model.Document, insert bool) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	if insert {
		_, err = q.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`, collection, id, string(body))
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
	} else {
		_, err = q.ExecContext(ctx, `UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(body), collection, id)
	}
	if err != nil {
		return fmt.Errorf("docstore: write %s/%s: %w", collection, id, err)
	}
	return nil
}
