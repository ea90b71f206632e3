package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	header := "Policy diff"
	if r.OldPath != "" || r.NewPath != "" {
		header = fmt.Sprintf("Policy diff: %s -> %s", r.OldPath, r.NewPath)
	}
	if !r.HasChanges {
		return header + "\n\nNo changes detected.\n"
	}

	var b strings.Builder
	b.WriteString(header + "\n")

	if len(r.Changes) > 0 {
		b.WriteString("\n  Lists:\n")
		for _, c := range r.Changes {
			sign := "+"
			if c.Type == "removed" {
				sign = "-"
			}
			fmt.Fprintf(&b, "    %-7s %s %s\n", c.Field+":", sign, c.Collection)
		}
	}

	if len(r.Exemptions) > 0 {
		b.WriteString("\n  Modifier check:\n")
		for _, e := range r.Exemptions {
			fmt.Fprintf(&b, "    %-24s %s -> %s  (%s)\n",
				e.Collection, label(e.WasExempt), label(e.NowExempt), e.Comment)
		}
	}

	if r.OnlyToggled {
		b.WriteString("\n  Note: only changed between empty and non-empty; unlisted collections are affected.\n")
	}
	return b.String()
}

func label(exempt bool) string {
	if exempt {
		return "exempt"
	}
	return "checked"
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
