package audit

import (
	"fmt"
	"sort"
	"strings"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatText renders a Report as a human-readable table.
func FormatText(r *Report) string {
	if len(r.Entries) == 0 {
		return "No audit entries found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s – %s UTC\n", r.Summary.FirstTimestamp, r.Summary.LastTimestamp)
	b.WriteString(separator + "\n")

	for _, e := range r.Entries {
		kind := e.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(&b, "%s  %-8s %-20s %-22s %s\n",
			e.Timestamp, strings.ToUpper(e.Decision), truncate(e.Collection, 20), kind, e.PolicyID)
	}

	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Total: %d | Approved: %d | Rejected: %d\n", r.Summary.Total, r.Summary.Approved, r.Summary.Rejected)

	kinds := make([]string, 0, len(r.Summary.ByKind))
	for k := range r.Summary.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Summary.ByKind[k])
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
