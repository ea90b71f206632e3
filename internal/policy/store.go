package policy

import "sync/atomic"

// snapshot pairs a config with the hash of its source.
type snapshot struct {
	cfg  *PolicyConfig
	hash string
}

// Store holds the current policy as an immutable snapshot behind an atomic
// pointer. Readers never observe a partially replaced config.
type Store struct {
	cur atomic.Pointer[snapshot]
}

// NewStore returns a Store holding a copy of cfg (nil means empty policy).
func NewStore(cfg *PolicyConfig) *Store {
	s := &Store{}
	s.Set(cfg)
	return s
}

// Set replaces the whole configuration. Nothing is merged with the prior value.
func (s *Store) Set(cfg *PolicyConfig) {
	s.SetWithHash(cfg, "")
}

// SetWithHash replaces the configuration and records the hash of its source.
func (s *Store) SetWithHash(cfg *PolicyConfig, hash string) {
	s.cur.Store(&snapshot{cfg: cfg.Clone(), hash: hash})
}

// Current returns the latest snapshot. Callers must treat it as read-only.
func (s *Store) Current() *PolicyConfig {
	return s.load().cfg
}

// Hash returns the source hash recorded with the latest snapshot, if any.
func (s *Store) Hash() string {
	return s.load().hash
}

// Snapshot returns the config and hash from a single atomic read.
func (s *Store) Snapshot() (*PolicyConfig, string) {
	snap := s.load()
	return snap.cfg, snap.hash
}

func (s *Store) load() *snapshot {
	if snap := s.cur.Load(); snap != nil {
		return snap
	}
	return &snapshot{cfg: DefaultConfig()}
}
