package docstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ppiankov/safeupdate/internal/model"
)

// Collection is a named set of documents. It implements the guard's Updater.
type Collection struct {
	db   *DB
	name string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Insert stores doc and returns its _id, generating one when absent.
func (c *Collection) Insert(ctx context.Context, doc model.Document) (string, error) {
	doc = doc.Clone()
	if doc == nil {
		doc = model.Document{}
	}
	id, err := ensureID(doc)
	if err != nil {
		return "", err
	}
	if err := write(ctx, c.db.db, c.name, id, doc, true); err != nil {
		return "", err
	}
	return id, nil
}

// FindOne returns the first document (in _id order) matching selector.
func (c *Collection) FindOne(ctx context.Context, selector model.Document) (model.Document, error) {
	found, err := scan(ctx, c.db.db, c.name, selector, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0].doc, nil
}

// Find returns every document matching selector, in _id order.
func (c *Collection) Find(ctx context.Context, selector model.Document) ([]model.Document, error) {
	found, err := scan(ctx, c.db.db, c.name, selector, 0)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, len(found))
	for i := range found {
		docs[i] = found[i].doc
	}
	return docs, nil
}

// Count returns the number of documents matching selector.
func (c *Collection) Count(ctx context.Context, selector model.Document) (int64, error) {
	found, err := scan(ctx, c.db.db, c.name, selector, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// Update applies modifier to the first matching document, or to every match
// when opts.Multi is set, and returns the number of documents written.
//
// A modifier made of $-operators patches fields; any other modifier replaces
// the document while keeping its _id. With opts.Upsert and no match, a new
// document is built from the selector's plain fields plus the modifier.
// Replace and AllowEmptySelector are guard switches and are ignored here.
func (c *Collection) Update(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) (int64, error) {
	if modifier == nil {
		return 0, fmt.Errorf("docstore: update %s: modifier is required", c.name)
	}
	if err := validateModifier(modifier); err != nil {
		return 0, fmt.Errorf("docstore: update %s: %w", c.name, err)
	}

	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("docstore: begin: %w", err)
	}
	defer tx.Rollback()

	limit := 1
	if opts.Multi {
		limit = 0
	}
	found, err := scan(ctx, tx, c.name, selector, limit)
	if err != nil {
		return 0, err
	}

	if len(found) == 0 {
		if !opts.Upsert {
			return 0, nil
		}
		if err := c.upsert(ctx, tx, selector, modifier); err != nil {
			return 0, err
		}
		return 1, commit(tx)
	}

	for _, s := range found {
		next, err := apply(s.doc, modifier)
		if err != nil {
			return 0, fmt.Errorf("docstore: update %s/%s: %w", c.name, s.id, err)
		}
		if err := write(ctx, tx, c.name, s.id, next, false); err != nil {
			return 0, err
		}
	}
	return int64(len(found)), commit(tx)
}

func (c *Collection) upsert(ctx context.Context, tx *sql.Tx, selector, modifier model.Document) error {
	base := model.Document{}
	for k, v := range selector {
		if err := setPath(base, k, cloneAny(v)); err != nil {
			return fmt.Errorf("docstore: upsert %s: %w", c.name, err)
		}
	}
	doc, err := apply(base, modifier)
	if err != nil {
		return fmt.Errorf("docstore: upsert %s: %w", c.name, err)
	}
	if _, ok := doc[IDField]; !ok {
		if id, ok := base[IDField]; ok {
			doc[IDField] = id
		}
	}
	id, err := ensureID(doc)
	if err != nil {
		return err
	}
	return write(ctx, tx, c.name, id, doc, true)
}

func ensureID(doc model.Document) (string, error) {
	raw, ok := doc[IDField]
	if !ok || raw == nil {
		id := uuid.NewString()
		doc[IDField] = id
		return id, nil
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("docstore: _id must be a non-empty string, got %T", raw)
	}
	return id, nil
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}
	return nil
}
