package model

import (
	"fmt"
	"sort"
	"strings"
)

// Document is a schemaless record, a selector, or a modifier.
type Document map[string]any

// Keys returns the document's top-level keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasOperator reports whether any top-level key starts with "$".
// Detection is purely syntactic: "$bogus" counts as an operator.
func (d Document) HasOperator() bool {
	for k := range d {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of nested documents, maps and slices.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// UpdateOptions are the caller-controlled switches of one update call.
// Multi is not inspected by the guard and is passed through to the store.
type UpdateOptions struct {
	Replace            bool `json:"replace,omitempty" yaml:"replace,omitempty"`
	Upsert             bool `json:"upsert,omitempty" yaml:"upsert,omitempty"`
	AllowEmptySelector bool `json:"allowEmptySelector,omitempty" yaml:"allowEmptySelector,omitempty"`
	Multi              bool `json:"multi,omitempty" yaml:"multi,omitempty"`
}

// OptionsFromMap builds UpdateOptions from a loosely typed map, accepting the
// camelCase and snake_case spellings. Unknown keys are ignored.
func OptionsFromMap(m map[string]any) (UpdateOptions, error) {
	var opts UpdateOptions
	for k, v := range m {
		var dst *bool
		switch k {
		case "replace":
			dst = &opts.Replace
		case "upsert":
			dst = &opts.Upsert
		case "allowEmptySelector", "allow_empty_selector":
			dst = &opts.AllowEmptySelector
		case "multi":
			dst = &opts.Multi
		default:
			continue
		}
		switch b := v.(type) {
		case bool:
			*dst = b
		case nil:
		default:
			return UpdateOptions{}, fmt.Errorf("option %q: expected bool, got %T", k, v)
		}
	}
	return opts, nil
}

// UpdateRequest is one pending update, alive for a single guard decision.
// A nil Modifier means the modifier is absent.
type UpdateRequest struct {
	Collection string        `json:"collection"`
	Selector   Document      `json:"selector"`
	Modifier   Document      `json:"modifier"`
	Options    UpdateOptions `json:"options"`
}

// Decision is the guard outcome.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// RejectKind discriminates guard rejections.
type RejectKind string

const (
	KindNone               RejectKind = ""
	KindEmptySelector      RejectKind = "empty_selector"
	KindNoModifierOperator RejectKind = "no_modifier_operator"
)

// RejectCode is the numeric code carried by every guard rejection.
const RejectCode = 500

// GuardResult is the output of one guard evaluation.
type GuardResult struct {
	Decision Decision   `json:"decision"`
	Kind     RejectKind `json:"kind,omitempty"`
	Code     int        `json:"code,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	PolicyID string     `json:"policy_id,omitempty"`
	Exempt   bool       `json:"exempt,omitempty"`
}

// Approved reports whether the request may be forwarded.
func (r GuardResult) Approved() bool {
	return r.Decision == Approve
}
