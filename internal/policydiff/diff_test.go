package policydiff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/safeupdate/internal/policy"
)

func TestIdenticalPoliciesNoChanges(t *testing.T) {
	a := &policy.PolicyConfig{Except: []string{"logs"}}
	b := &policy.PolicyConfig{Except: []string{"logs"}}

	r := Diff(a, b)
	if r.HasChanges {
		t.Errorf("expected no changes, got %+v", r)
	}
	if !strings.Contains(FormatText(r), "No changes detected") {
		t.Error("expected no-changes text")
	}
}

func TestNilTreatedAsDefault(t *testing.T) {
	if r := Diff(nil, policy.DefaultConfig()); r.HasChanges {
		t.Errorf("expected nil and default to be equal, got %+v", r)
	}
}

func TestExceptAddedIsLooser(t *testing.T) {
	r := Diff(policy.DefaultConfig(), &policy.PolicyConfig{Except: []string{"logs"}})
	if !r.HasChanges {
		t.Fatal("expected changes")
	}
	if len(r.Changes) != 1 || r.Changes[0] != (Change{Field: "except", Collection: "logs", Type: "added"}) {
		t.Errorf("unexpected list changes %+v", r.Changes)
	}
	if len(r.Exemptions) != 1 || r.Exemptions[0].Comment != "looser" || !r.Exemptions[0].NowExempt {
		t.Errorf("unexpected exemptions %+v", r.Exemptions)
	}
	if r.OnlyToggled {
		t.Error("expected only not toggled")
	}
}

func TestOnlyAddedTogglesAndTightens(t *testing.T) {
	old := &policy.PolicyConfig{Except: []string{"users"}}
	new := &policy.PolicyConfig{Only: []string{"users"}}

	r := Diff(old, new)
	if !r.OnlyToggled {
		t.Error("expected only toggled")
	}
	if len(r.Exemptions) != 1 || r.Exemptions[0].Collection != "users" || r.Exemptions[0].Comment != "stricter" {
		t.Errorf("expected users to become checked, got %+v", r.Exemptions)
	}
	if len(r.Changes) != 2 {
		t.Errorf("expected 2 list changes, got %+v", r.Changes)
	}

	text := FormatText(r)
	for _, want := range []string{"only:   + users", "except: - users", "exempt -> checked", "unlisted collections"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
}

func TestDuplicatesCollapsed(t *testing.T) {
	r := Diff(policy.DefaultConfig(), &policy.PolicyConfig{Except: []string{"a", "a"}})
	if len(r.Changes) != 1 {
		t.Errorf("expected duplicate names collapsed, got %+v", r.Changes)
	}
}

func TestFormatJSON(t *testing.T) {
	r := Diff(policy.DefaultConfig(), &policy.PolicyConfig{Except: []string{"a"}})
	r.OldPath, r.NewPath = "old.yaml", "new.yaml"
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var back DiffResult
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !back.HasChanges || back.OldPath != "old.yaml" {
		t.Errorf("unexpected decoded result %+v", back)
	}
}
