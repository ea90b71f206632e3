package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
)

var (
	checkSelector string
	checkModifier string
	checkFormat   string
	checkOpts     model.UpdateOptions
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkSelector, "selector", "s", "", "Selector JSON object")
	checkCmd.Flags().StringVarP(&checkModifier, "modifier", "m", "", "Modifier JSON object (omit for absent)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	addOptionFlags(checkCmd, &checkOpts)
}

var checkCmd = &cobra.Command{
	Use:   "check <collection>",
	Short: "Dry-run an update against the policy",
	Long: "Evaluates an update exactly as the guard would, without touching the store.\n\n" +
		"Exit code 0 if the update would be approved, 1 if it would be rejected.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], checkSelector, checkModifier, checkOpts)
	if err != nil {
		return err
	}

	store, err := loadPolicy()
	if err != nil {
		return err
	}
	result := guard.New(guard.Config{Policy: store, Logger: logger}).Check(req)

	switch checkFormat {
	case "json":
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	default:
		if result.Approved() {
			fmt.Fprintf(cmd.OutOrStdout(), "APPROVE %s (%s)\n", req.Collection, result.PolicyID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "REJECT  %s (%s): %s\n", req.Collection, result.Kind, result.Reason)
		}
	}

	if !result.Approved() {
		return fmt.Errorf("update would be rejected: %s", result.Kind)
	}
	return nil
}

func buildRequest(collection, selector, modifier string, opts model.UpdateOptions) (model.UpdateRequest, error) {
	sel, err := parseDocument("selector", selector)
	if err != nil {
		return model.UpdateRequest{}, err
	}
	mod, err := parseDocument("modifier", modifier)
	if err != nil {
		return model.UpdateRequest{}, err
	}
	return model.UpdateRequest{Collection: collection, Selector: sel, Modifier: mod, Options: opts}, nil
}

// loadPolicy reads --policy into a fresh store and logs its warnings.
func loadPolicy() (*policy.Store, error) {
	cfg, hash, err := policy.LoadConfigWithHash(policyPath)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Validate() {
		logger.Warn("policy warning", "warning", w)
	}
	store := policy.NewStore(nil)
	store.SetWithHash(cfg, hash)
	return store, nil
}
