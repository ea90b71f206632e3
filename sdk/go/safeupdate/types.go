package safeupdate

import (
	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
)

type (
	// Document is a selector, modifier or stored document.
	Document = model.Document

	// UpdateOptions are the per-call switches.
	UpdateOptions = model.UpdateOptions

	// Updater is the store update capability being guarded.
	Updater = guard.Updater

	// UpdaterFunc adapts a function to Updater.
	UpdaterFunc = guard.UpdaterFunc

	// Collection is a guarded Updater.
	Collection = guard.Collection

	// Callback receives the outcome of a callback-style update.
	Callback = guard.Callback

	// Pending is the outcome of an asynchronous update.
	Pending = guard.Pending

	// RejectedError is returned for rejected updates.
	RejectedError = guard.RejectedError

	// Result is a dry-run decision.
	Result = model.GuardResult
)

// Rejection sentinels for errors.Is.
var (
	ErrRejected           = guard.ErrRejected
	ErrEmptySelector      = guard.ErrEmptySelector
	ErrNoModifierOperator = guard.ErrNoModifierOperator
)

// Config selects which collections the modifier check applies to.
// Except exempts the listed collections; a non-empty Only exempts every
// collection not listed.
type Config struct {
	Only   []string `yaml:"only,omitempty" json:"only,omitempty"`
	Except []string `yaml:"except,omitempty" json:"except,omitempty"`
}

func (c Config) internal() *policy.PolicyConfig {
	return &policy.PolicyConfig{Only: c.Only, Except: c.Except}
}

func fromInternal(p *policy.PolicyConfig) Config {
	cp := p.Clone()
	return Config{Only: cp.Only, Except: cp.Except}
}

// IsRejected reports whether err is a guard rejection.
func IsRejected(err error) bool {
	return guard.IsRejected(err)
}

// Kind returns "empty_selector", "no_modifier_operator", or "" for other errors.
func Kind(err error) string {
	return string(guard.KindOf(err))
}
