package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/metrics"
	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
)

// Updater is the store capability the guard wraps.
type Updater interface {
	Update(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) (int64, error)
}

// UpdaterFunc adapts an ordinary function to Updater.
type UpdaterFunc func(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) (int64, error)

// Update returns f(ctx, selector, modifier, opts).
func (f UpdaterFunc) Update(ctx context.Context, selector, modifier model.Document, opts model.UpdateOptions) (int64, error) {
	return f(ctx, selector, modifier, opts)
}

// Config holds guard dependencies. Only Policy matters for decisions; the
// rest observe them.
type Config struct {
	Policy   *policy.Store
	Logger   *slog.Logger
	AuditLog *audit.Log
	Metrics  *metrics.GuardMetrics
}

// Guard runs the safety checks in front of wrapped collections.
// It is stateless apart from the shared policy store and safe for concurrent use.
type Guard struct {
	policy   *policy.Store
	logger   *slog.Logger
	auditLog *audit.Log
	metrics  *metrics.GuardMetrics
}

// New creates a Guard. A nil Policy gets a fresh empty store.
func New(cfg Config) *Guard {
	if cfg.Policy == nil {
		cfg.Policy = policy.NewStore(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Guard{
		policy:   cfg.Policy,
		logger:   cfg.Logger,
		auditLog: cfg.AuditLog,
		metrics:  cfg.Metrics,
	}
}

// Policy returns the store the guard reads from.
func (g *Guard) Policy() *policy.Store {
	return g.policy
}

// Check evaluates req without forwarding it or recording anything. Dry-run mode.
func (g *Guard) Check(req model.UpdateRequest) model.GuardResult {
	return policy.Evaluate(req, g.policy.Current())
}

// Wrap returns a guarded view of next for the named collection.
func (g *Guard) Wrap(collection string, next Updater) *Collection {
	return &Collection{name: collection, guard: g, next: next}
}

// admit evaluates req against one policy snapshot, records the decision and
// returns a *RejectedError when the request must not reach the store.
func (g *Guard) admit(ctx context.Context, req model.UpdateRequest) error {
	start := time.Now()
	cfg, hash := g.policy.Snapshot()
	result := policy.Evaluate(req, cfg)

	if g.metrics != nil {
		g.metrics.Observe(req.Collection, result, time.Since(start))
	}
	g.recordAudit(req.Collection, result, hash)

	if result.Approved() {
		return nil
	}

	g.logger.DebugContext(ctx, "update rejected",
		"collection", req.Collection,
		"kind", string(result.Kind),
		"policy_id", result.PolicyID,
	)
	return newRejectedError(req.Collection, result)
}

func (g *Guard) recordAudit(collection string, result model.GuardResult, policyHash string) {
	if g.auditLog == nil {
		return
	}
	err := g.auditLog.Record(audit.AuditEntry{
		DecisionID: uuid.NewString(),
		Collection: collection,
		Decision:   string(result.Decision),
		Kind:       string(result.Kind),
		Reason:     result.Reason,
		PolicyID:   result.PolicyID,
		PolicyHash: policyHash,
	})
	if err != nil {
		g.logger.Warn("audit record failed", "collection", collection, "error", err)
	}
}
