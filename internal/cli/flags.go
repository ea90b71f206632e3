package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/model"
)

// addOptionFlags binds the update option switches to opts.
func addOptionFlags(cmd *cobra.Command, opts *model.UpdateOptions) {
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "Allow a modifier without $-operators to replace the document")
	cmd.Flags().BoolVar(&opts.Upsert, "upsert", false, "Insert a document when nothing matches")
	cmd.Flags().BoolVar(&opts.AllowEmptySelector, "allow-empty-selector", false, "Allow an empty selector")
	cmd.Flags().BoolVar(&opts.Multi, "multi", false, "Update every match instead of the first")
}

// parseDocument decodes a JSON object flag. Empty input means absent (nil).
func parseDocument(name, s string) (model.Document, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", name, err)
	}
	return doc, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
