package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter selects audit entries.
type Filter struct {
	Collection string    // empty = all collections
	From       time.Time // zero value = no lower bound
	To         time.Time // zero value = no upper bound
}

// Summary counts decisions across the selected entries.
type Summary struct {
	Total          int            `json:"total"`
	Approved       int            `json:"approved"`
	Rejected       int            `json:"rejected"`
	ByKind         map[string]int `json:"by_kind,omitempty"`
	FirstTimestamp string         `json:"first_timestamp,omitempty"`
	LastTimestamp  string         `json:"last_timestamp,omitempty"`
}

// Report is the filtered entries plus their summary.
type Report struct {
	Entries []AuditEntry `json:"entries"`
	Summary Summary      `json:"summary"`
}

// Read loads entries matching filter. Malformed lines are skipped.
func Read(path string, filter Filter) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	report := &Report{Summary: Summary{ByKind: map[string]int{}}}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !filter.match(entry) {
			continue
		}
		report.add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return report, nil
}

func (f Filter) match(e AuditEntry) bool {
	if f.Collection != "" && e.Collection != f.Collection {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func (r *Report) add(e AuditEntry) {
	r.Entries = append(r.Entries, e)
	s := &r.Summary
	s.Total++
	switch e.Decision {
	case "approve":
		s.Approved++
	case "reject":
		s.Rejected++
		s.ByKind[e.Kind]++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
