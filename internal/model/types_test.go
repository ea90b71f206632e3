package model

import (
	"reflect"
	"testing"
)

func TestHasOperator(t *testing.T) {
	cases := []struct {
		name string
		doc  Document
		want bool
	}{
		{"nil", nil, false},
		{"empty", Document{}, false},
		{"plain fields", Document{"count": 1, "name": "x"}, false},
		{"set", Document{"$set": Document{"count": 1}}, true},
		{"mixed", Document{"count": 1, "$inc": Document{"n": 1}}, true},
		{"unknown operator still counts", Document{"$bogus": 1}, true},
		{"dollar not leading", Document{"a$b": 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.doc.HasOperator(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Document{
		"nested": map[string]any{"a": 1},
		"list":   []any{Document{"b": 2}},
	}
	cp := orig.Clone()

	cp["nested"].(map[string]any)["a"] = 99
	cp["list"].([]any)[0].(Document)["b"] = 99

	if orig["nested"].(map[string]any)["a"] != 1 {
		t.Error("expected nested map to be copied")
	}
	if orig["list"].([]any)[0].(Document)["b"] != 2 {
		t.Error("expected nested slice element to be copied")
	}
}

func TestKeysSorted(t *testing.T) {
	got := Document{"b": 1, "a": 2, "$set": 3}.Keys()
	want := []string{"$set", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(map[string]any{
		"replace":              true,
		"allow_empty_selector": true,
		"multi":                nil,
		"somethingElse":        "ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := UpdateOptions{Replace: true, AllowEmptySelector: true}
	if opts != want {
		t.Errorf("expected %+v, got %+v", want, opts)
	}

	if _, err := OptionsFromMap(map[string]any{"upsert": "yes"}); err == nil {
		t.Error("expected error for non-bool option")
	}
}

func TestGuardResultApproved(t *testing.T) {
	if !(GuardResult{Decision: Approve}).Approved() {
		t.Error("expected approve to be approved")
	}
	if (GuardResult{Decision: Reject}).Approved() {
		t.Error("expected reject to not be approved")
	}
}
