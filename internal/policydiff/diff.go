// Package policydiff compares two collection policies.
package policydiff

import (
	"slices"
	"sort"

	"github.com/ppiankov/safeupdate/internal/policy"
)

// Change is one collection added to or removed from a list.
type Change struct {
	Field      string `json:"field"` // "only" or "except"
	Collection string `json:"collection"`
	Type       string `json:"type"` // "added" or "removed"
}

// ExemptionChange is a named collection whose exemption flips.
type ExemptionChange struct {
	Collection string `json:"collection"`
	WasExempt  bool   `json:"was_exempt"`
	NowExempt  bool   `json:"now_exempt"`
	Comment    string `json:"comment"` // "stricter" or "looser"
}

// DiffResult holds the comparison of two PolicyConfigs.
type DiffResult struct {
	OldPath    string            `json:"old_path,omitempty"`
	NewPath    string            `json:"new_path,omitempty"`
	Changes    []Change          `json:"changes"`
	Exemptions []ExemptionChange `json:"exemptions"`
	// OnlyToggled is set when Only goes from empty to non-empty or back,
	// which changes the outcome for every collection not named in either policy.
	OnlyToggled bool `json:"only_toggled,omitempty"`
	HasChanges  bool `json:"has_changes"`
}

// Diff compares two PolicyConfigs and returns the differences.
func Diff(old, new *policy.PolicyConfig) *DiffResult {
	if old == nil {
		old = policy.DefaultConfig()
	}
	if new == nil {
		new = policy.DefaultConfig()
	}
	r := &DiffResult{}

	diffList(r, "only", old.Only, new.Only)
	diffList(r, "except", old.Except, new.Except)
	r.OnlyToggled = (len(old.Only) > 0) != (len(new.Only) > 0)

	for _, name := range named(old, new) {
		was, now := old.Exempt(name), new.Exempt(name)
		if was == now {
			continue
		}
		comment := "looser"
		if was && !now {
			comment = "stricter"
		}
		r.Exemptions = append(r.Exemptions, ExemptionChange{
			Collection: name,
			WasExempt:  was,
			NowExempt:  now,
			Comment:    comment,
		})
	}

	r.HasChanges = len(r.Changes) > 0 || len(r.Exemptions) > 0 || r.OnlyToggled
	return r
}

func diffList(r *DiffResult, field string, old, new []string) {
	for _, name := range sorted(new) {
		if !slices.Contains(old, name) {
			r.Changes = append(r.Changes, Change{Field: field, Collection: name, Type: "added"})
		}
	}
	for _, name := range sorted(old) {
		if !slices.Contains(new, name) {
			r.Changes = append(r.Changes, Change{Field: field, Collection: name, Type: "removed"})
		}
	}
}

// named returns every collection mentioned by either policy, sorted and unique.
func named(cfgs ...*policy.PolicyConfig) []string {
	seen := make(map[string]bool)
	for _, c := range cfgs {
		for _, n := range c.Only {
			seen[n] = true
		}
		for _, n := range c.Except {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sorted(names []string) []string {
	out := slices.Clone(names)
	sort.Strings(out)
	return slices.Compact(out)
}
