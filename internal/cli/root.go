package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/logging"
)

var (
	logLevel   string
	logFormat  string
	policyPath string
	dbPath     string
	auditPath  string
)

// logger is configured by the root command before any subcommand runs.
var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "safeupdate",
	Short: "Guard document updates against empty selectors and accidental replacement",
	Long: "Sits in front of a document store's update call and rejects the two classic\n" +
		"mistakes: an empty selector that matches every document, and a modifier\n" +
		"without $-operators that silently replaces the whole document.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Config{Level: logLevel, Format: logFormat})
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text|json)")
	pf.StringVar(&policyPath, "policy", "", "Path to policy YAML (default ~/.safeupdate/policy.yaml)")
	pf.StringVar(&dbPath, "db", "", "Path to document database (default ~/.safeupdate/data.db)")
	pf.StringVar(&auditPath, "audit-log", "", "Path to audit log JSONL file (disabled when empty)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configDir returns ~/.safeupdate.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".safeupdate"), nil
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "data.db"), nil
}
