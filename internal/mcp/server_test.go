package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	s, err := New(context.Background(), Config{
		PolicyPath: filepath.Join(dir, "policy.yaml"),
		DBPath:     filepath.Join(dir, "docs.db"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create MCP server: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	_, err = s.db.Collection("counters").Insert(context.Background(),
		model.Document{"_id": "counter", "count": 0, "another": "field"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestUpdateAllowed(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, out, err := s.handleUpdate(ctx, &mcpsdk.CallToolRequest{}, UpdateInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
		Modifier:   map[string]any{"$inc": map[string]any{"count": 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.Updated != 1 {
		t.Fatalf("expected 1 updated, got %d", out.Updated)
	}
}

func TestUpdateRejected(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, out, err := s.handleUpdate(ctx, &mcpsdk.CallToolRequest{}, UpdateInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
		Modifier:   map[string]any{"count": 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for rejected update")
	}
	if !out.Rejected || out.Code != 500 || out.Kind != "no_modifier_operator" {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Message != policy.NoModifierOperatorMessage {
		t.Errorf("expected message %q, got %q", policy.NoModifierOperatorMessage, out.Message)
	}

	_, out, _ = s.handleUpdate(ctx, &mcpsdk.CallToolRequest{}, UpdateInput{
		Collection: "counters",
		Modifier:   map[string]any{"$inc": map[string]any{"count": 1}},
	})
	if out.Kind != "empty_selector" {
		t.Errorf("expected empty_selector, got %q", out.Kind)
	}
}

func TestUpdateReplaceOption(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, _ := s.handleUpdate(ctx, &mcpsdk.CallToolRequest{}, UpdateInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
		Modifier:   map[string]any{"count": 1},
		Options:    model.UpdateOptions{Replace: true},
	})
	if out.Updated != 1 {
		t.Fatalf("expected replace to update 1, got %+v", out)
	}

	_, found, err := s.handleFind(ctx, &mcpsdk.CallToolRequest{}, FindInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Count != 1 || found.Documents[0]["count"] != 1.0 {
		t.Fatalf("expected count 1, got %+v", found)
	}
	if _, ok := found.Documents[0]["another"]; ok {
		t.Error("expected replacement to drop other fields")
	}
}

func TestUpdateStoreError(t *testing.T) {
	s := newTestServer(t)
	result, out, err := s.handleUpdate(context.Background(), &mcpsdk.CallToolRequest{}, UpdateInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
		Modifier:   map[string]any{"$rename": map[string]any{"count": "n"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError || out.Rejected || out.Error == "" {
		t.Fatalf("expected store error result, got %+v", out)
	}
}

func TestCheckDryRun(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	in := UpdateInput{
		Collection: "counters",
		Selector:   map[string]any{"_id": "counter"},
		Modifier:   map[string]any{"count": 100},
	}

	_, out, err := s.handleCheck(ctx, &mcpsdk.CallToolRequest{}, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Decision != "reject" || out.Kind != "no_modifier_operator" {
		t.Fatalf("expected reject, got %+v", out)
	}

	_, found, _ := s.handleFind(ctx, &mcpsdk.CallToolRequest{}, FindInput{Collection: "counters"})
	if found.Documents[0]["count"] != 0.0 {
		t.Error("expected check to leave the document untouched")
	}

	s.guard.Policy().Set(&policy.PolicyConfig{Except: []string{"counters"}})
	_, out, _ = s.handleCheck(ctx, &mcpsdk.CallToolRequest{}, in)
	if out.Decision != "approve" || !out.Exempt {
		t.Errorf("expected exempt approval, got %+v", out)
	}
}

func TestPolicyTool(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(policyPath, []byte("only:\n  - users\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := New(context.Background(), Config{
		PolicyPath: policyPath,
		DBPath:     ":memory:",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	_, out, err := s.handlePolicy(context.Background(), &mcpsdk.CallToolRequest{}, PolicyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Only) != 1 || out.Only[0] != "users" {
		t.Errorf("expected only [users], got %v", out.Only)
	}
	if out.Hash != policy.HashBytes([]byte("only:\n  - users\n")) {
		t.Errorf("unexpected hash %q", out.Hash)
	}
}

func TestNewFailsOnBadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	os.WriteFile(path, []byte("only: [unclosed"), 0644)
	if _, err := New(context.Background(), Config{PolicyPath: path}); err == nil {
		t.Fatal("expected error for invalid policy")
	}
}
