package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/audit"
)

var (
	tailLines        int
	reportCollection string
	reportFrom       string
	reportTo         string
	reportFormat     string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditReportCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditReportCmd.Flags().StringVarP(&reportCollection, "collection", "c", "", "Only entries for this collection")
	auditReportCmd.Flags().StringVar(&reportFrom, "from", "", "Start time filter (RFC3339)")
	auditReportCmd.Flags().StringVar(&reportTo, "to", "", "End time filter (RFC3339)")
	auditReportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log of guard decisions.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent audit log entries",
	Long:  "Reads the last N entries from the JSONL audit log and pretty-prints them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

var auditReportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Summarize guard decisions",
	Long:  "Reads the audit log, filters by collection and optional time range,\nand renders the decisions with approve/reject totals per kind.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditReport,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	return fmt.Errorf("audit chain broken at line %d", result.ErrorLine)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	// Read all lines, keep last N
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	out := cmd.OutOrStdout()
	for _, line := range lines[start:] {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Fprintln(out, line)
			continue
		}
		pretty, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Fprintln(out, string(pretty))
	}
	return nil
}

func runAuditReport(cmd *cobra.Command, args []string) error {
	filter := audit.Filter{Collection: reportCollection}

	if reportFrom != "" {
		from, err := time.Parse(time.RFC3339, reportFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", reportFrom, err)
		}
		filter.From = from
	}
	if reportTo != "" {
		to, err := time.Parse(time.RFC3339, reportTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", reportTo, err)
		}
		filter.To = to
	}

	report, err := audit.Read(args[0], filter)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return printJSON(cmd, report)
	default:
		fmt.Fprint(cmd.OutOrStdout(), audit.FormatText(report))
	}
	return nil
}
