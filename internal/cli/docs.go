package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/model"
)

var findSelector string

func init() {
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVarP(&findSelector, "selector", "s", "", "Selector JSON object (empty matches all)")
}

var insertCmd = &cobra.Command{
	Use:   "insert <collection> <document-json>",
	Short: "Insert a document into the local store",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsert,
}

var findCmd = &cobra.Command{
	Use:   "find <collection>",
	Short: "Print documents matching a selector",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

func runInsert(cmd *cobra.Command, args []string) error {
	doc, err := parseDocument("document", args[1])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.Collection(args[0]).Insert(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	sel, err := parseDocument("selector", findSelector)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.Collection(args[0]).Find(ctx, sel)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return printJSON(cmd, docs)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
