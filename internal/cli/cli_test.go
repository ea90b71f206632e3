package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/model"
)

// run executes the root command with fresh flag state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logLevel, logFormat = "error", "text"
	policyPath, dbPath, auditPath = "", "", ""
	checkSelector, checkModifier, checkFormat = "", "", "text"
	checkOpts = model.UpdateOptions{}
	updateSelector, updateModifier = "", ""
	updateOpts = model.UpdateOptions{}
	findSelector = ""
	initForce = false
	tailLines = 10
	reportCollection, reportFrom, reportTo, reportFormat = "", "", "", "text"
	diffFormat = "text"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) (dir, db string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)
	return dir, filepath.Join(dir, "data.db")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("expected JSON output, got %q", out)
	}
	if info["name"] != "safeupdate" || info["version"] != version {
		t.Errorf("unexpected version info %v", info)
	}
}

func TestCheckDryRun(t *testing.T) {
	setup(t)

	out, err := run(t, "check", "counters", "-s", `{"_id":"counter"}`, "-m", `{"count":1}`)
	if err == nil {
		t.Fatal("expected rejection to fail the command")
	}
	if !strings.Contains(out, "REJECT") || !strings.Contains(out, "no_modifier_operator") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "check", "counters", "-s", `{"_id":"counter"}`, "-m", `{"count":1}`, "--replace")
	if err != nil {
		t.Fatalf("expected approval, got %v", err)
	}
	if !strings.Contains(out, "APPROVE") {
		t.Errorf("unexpected output %q", out)
	}

	out, _ = run(t, "check", "counters", "-m", `{"$inc":{"count":1}}`, "-f", "json")
	var result model.GuardResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("expected JSON, got %q", out)
	}
	if result.Kind != model.KindEmptySelector {
		t.Errorf("expected empty_selector, got %q", result.Kind)
	}
}

func TestCheckRespectsPolicyFile(t *testing.T) {
	dir, _ := setup(t)
	path := filepath.Join(dir, "policy.yaml")
	os.WriteFile(path, []byte("except:\n  - logs\n"), 0o644)

	if _, err := run(t, "--policy", path, "check", "logs", "-s", `{"a":1}`, "-m", `{"b":2}`); err != nil {
		t.Fatalf("expected exempt collection to pass, got %v", err)
	}
}

func TestCheckInvalidJSON(t *testing.T) {
	setup(t)
	if _, err := run(t, "check", "c", "-s", `{bad`); err == nil {
		t.Fatal("expected error for invalid selector JSON")
	}
}

func TestInsertUpdateFind(t *testing.T) {
	dir, db := setup(t)
	auditLog := filepath.Join(dir, "audit.jsonl")

	if _, err := run(t, "--db", db, "insert", "counters", `{"_id":"counter","count":0,"another":"field"}`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := run(t, "--db", db, "--audit-log", auditLog, "update", "counters", "-s", `{"_id":"counter"}`, "-m", `{"count":1}`); err == nil {
		t.Fatal("expected rejection")
	}

	out, err := run(t, "--db", db, "--audit-log", auditLog, "update", "counters", "-s", `{"_id":"counter"}`, "-m", `{"$inc":{"count":5}}`)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(out, `"updated": 1`) {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "--db", db, "find", "counters", "-s", `{"_id":"counter"}`)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("expected JSON array, got %q", out)
	}
	if len(docs) != 1 || docs[0]["count"] != 5.0 || docs[0]["another"] != "field" {
		t.Errorf("unexpected documents %v", docs)
	}

	if v := audit.Verify(auditLog); !v.Valid || v.Lines != 2 {
		t.Errorf("expected 2 verified audit entries, got %+v", v)
	}

	out, err = run(t, "audit", "verify", auditLog)
	if err != nil || !strings.Contains(out, "OK: 2 entries verified") {
		t.Errorf("audit verify: %q %v", out, err)
	}

	out, err = run(t, "audit", "report", auditLog, "-c", "counters")
	if err != nil {
		t.Fatalf("audit report: %v", err)
	}
	if !strings.Contains(out, "Approved: 1 | Rejected: 1") {
		t.Errorf("unexpected report %q", out)
	}

	out, err = run(t, "audit", "tail", auditLog, "-n", "1")
	if err != nil || !strings.Contains(out, `"decision": "approve"`) {
		t.Errorf("audit tail: %q %v", out, err)
	}
}

func TestFindEmptyCollection(t *testing.T) {
	_, db := setup(t)
	out, err := run(t, "--db", db, "find", "nothing")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected [], got %q", out)
	}
}

func TestInitWritesPolicy(t *testing.T) {
	dir, _ := setup(t)
	if _, err := run(t, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(dir, ".safeupdate", "policy.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "except:") {
		t.Error("policy.yaml missing except section")
	}

	os.WriteFile(path, []byte("only: [x]\n"), 0o644)
	out, _ := run(t, "init")
	if !strings.Contains(out, "already exist") {
		t.Errorf("expected no overwrite without --force, got %q", out)
	}
	if _, err := run(t, "init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "only: [x]") {
		t.Error("expected --force to overwrite")
	}
}

func TestPolicyCommands(t *testing.T) {
	dir, _ := setup(t)
	path := filepath.Join(dir, "p.yaml")
	os.WriteFile(path, []byte("only: [a]\nexcept: [b]\n"), 0o644)

	out, err := run(t, "--policy", path, "policy", "show")
	if err != nil {
		t.Fatalf("policy show: %v", err)
	}
	if !strings.Contains(out, `"sha256:`) || !strings.Contains(out, "both only and except") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "policy", "validate", path)
	if err != nil || !strings.Contains(out, "1 warnings") {
		t.Errorf("policy validate: %q %v", out, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("only: [unclosed"), 0o644)
	if _, err := run(t, "policy", "validate", bad); err == nil {
		t.Error("expected invalid policy to fail")
	}
}

func TestBadLogLevel(t *testing.T) {
	setup(t)
	rootCmd.SetArgs([]string{"--log-level", "loud", "version"})
	rootCmd.SetOut(io.Discard)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected invalid log level to fail")
	}
	logLevel = "info"
}

func TestPolicyDiff(t *testing.T) {
	dir, _ := setup(t)
	oldPath := filepath.Join(dir, "old.yaml")
	newPath := filepath.Join(dir, "new.yaml")
	os.WriteFile(oldPath, []byte("except: [logs]\n"), 0o644)
	os.WriteFile(newPath, []byte("except: []\n"), 0o644)

	out, err := run(t, "policy", "diff", oldPath, newPath)
	if err != nil {
		t.Fatalf("policy diff: %v", err)
	}
	if !strings.Contains(out, "logs") || !strings.Contains(out, "stricter") {
		t.Errorf("unexpected diff output %q", out)
	}
}
