package audit

// AuditEntry is one line in the hash-chained JSONL audit log: one guard decision.
// All fields are plain values (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp  string `json:"ts"`
	DecisionID string `json:"decision_id"`
	Collection string `json:"collection"`
	Decision   string `json:"decision"`
	Kind       string `json:"kind,omitempty"`
	Reason     string `json:"reason,omitempty"`
	PolicyID   string `json:"policy_id"`
	PolicyHash string `json:"policy_hash,omitempty"`
	PrevHash   string `json:"prev_hash"`
}
