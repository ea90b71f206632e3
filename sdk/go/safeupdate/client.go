package safeupdate

import (
	"fmt"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
)

// Client holds a policy and the guard that enforces it.
// Safe for concurrent use, including SetPolicy during updates.
type Client struct {
	store    *policy.Store
	guard    *guard.Guard
	auditLog *audit.Log
}

// New creates a Client with the given options. With no options the policy
// is empty and every collection is checked.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	store := policy.NewStore(nil)
	switch {
	case cfg.policy != nil:
		store.Set(cfg.policy.internal())
	case cfg.policyPath != "":
		p, hash, err := policy.LoadConfigWithHash(cfg.policyPath)
		if err != nil {
			return nil, fmt.Errorf("safeupdate: failed to load policy config: %w", err)
		}
		store.SetWithHash(p, hash)
	}

	c := &Client{store: store}
	if cfg.auditLogPath != "" {
		l, err := audit.Open(cfg.auditLogPath)
		if err != nil {
			return nil, fmt.Errorf("safeupdate: failed to open audit log: %w", err)
		}
		c.auditLog = l
	}

	c.guard = guard.New(guard.Config{
		Policy:   store,
		Logger:   cfg.logger,
		AuditLog: c.auditLog,
	})
	return c, nil
}

// SetPolicy replaces the whole policy. Updates already past the check are
// unaffected; the next update sees the new policy.
func (c *Client) SetPolicy(cfg Config) {
	c.store.Set(cfg.internal())
}

// CurrentPolicy returns a copy of the active policy.
func (c *Client) CurrentPolicy() Config {
	return fromInternal(c.store.Current())
}

// Wrap returns a guarded view of next for the named collection.
func (c *Client) Wrap(collection string, next Updater) *Collection {
	return c.guard.Wrap(collection, next)
}

// Check evaluates an update without running it.
func (c *Client) Check(collection string, selector, modifier Document, opts UpdateOptions) Result {
	return c.guard.Check(model.UpdateRequest{
		Collection: collection,
		Selector:   selector,
		Modifier:   modifier,
		Options:    opts,
	})
}

// Close closes the audit log if configured.
func (c *Client) Close() error {
	if c.auditLog != nil {
		return c.auditLog.Close()
	}
	return nil
}
