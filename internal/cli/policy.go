package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/policy"
	"github.com/ppiankov/safeupdate/internal/policydiff"
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyDiffCmd)
	policyDiffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffFormat string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the collection policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective policy, its hash and warnings",
	RunE:  runPolicyShow,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Parse a policy file and report warnings",
	Long:  "Exits 1 if the file cannot be parsed. Warnings never fail validation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyValidate,
}

var policyDiffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two policy files",
	Long:  "Shows list changes and every named collection whose modifier check\nwould turn on (stricter) or off (looser).",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolicyDiff,
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, hash, err := policy.LoadConfigWithHash(policyPath)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"policy":   cfg,
		"hash":     hash,
		"warnings": cfg.Validate(),
	})
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	cfg, err := policy.LoadConfig(args[0])
	if err != nil {
		return err
	}
	warnings := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d only, %d except, %d warnings\n",
		len(cfg.Only), len(cfg.Except), len(warnings))
	return nil
}

func runPolicyDiff(cmd *cobra.Command, args []string) error {
	oldCfg, err := policy.LoadConfig(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	newCfg, err := policy.LoadConfig(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	result := policydiff.Diff(oldCfg, newCfg)
	result.OldPath, result.NewPath = args[0], args[1]

	switch diffFormat {
	case "json":
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	default:
		fmt.Fprint(cmd.OutOrStdout(), policydiff.FormatText(result))
	}
	return nil
}
