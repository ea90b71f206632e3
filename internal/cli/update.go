package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/docstore"
	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/model"
)

var (
	updateSelector string
	updateModifier string
	updateOpts     model.UpdateOptions
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVarP(&updateSelector, "selector", "s", "", "Selector JSON object")
	updateCmd.Flags().StringVarP(&updateModifier, "modifier", "m", "", "Modifier JSON object")
	addOptionFlags(updateCmd, &updateOpts)
}

var updateCmd = &cobra.Command{
	Use:   "update <collection>",
	Short: "Run a guarded update against the local document store",
	Long: "Applies an update through the guard. Rejected updates never reach the store\n" +
		"and exit with code 1 and the rejection message on stderr.",
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], updateSelector, updateModifier, updateOpts)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	g, closeGuard, err := newGuard()
	if err != nil {
		return err
	}
	defer closeGuard()

	coll := g.Wrap(req.Collection, db.Collection(req.Collection))
	updated, err := coll.Update(ctx, req.Selector, req.Modifier, req.Options)
	if err != nil {
		var rej *guard.RejectedError
		if errors.As(err, &rej) {
			fmt.Fprintf(os.Stderr, "rejected (%s): %s\n", rej.Kind, rej.Message)
		}
		return err
	}
	return printJSON(cmd, map[string]int64{"updated": updated})
}

func openDB(ctx context.Context) (*docstore.DB, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	return docstore.Open(ctx, path)
}

// newGuard builds a guard from the --policy and --audit-log flags.
func newGuard() (*guard.Guard, func(), error) {
	store, err := loadPolicy()
	if err != nil {
		return nil, nil, err
	}

	var auditLog *audit.Log
	if auditPath != "" {
		auditLog, err = audit.Open(auditPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}
	closer := func() {
		if auditLog != nil {
			auditLog.Close()
		}
	}
	return guard.New(guard.Config{Policy: store, Logger: logger, AuditLog: auditLog}), closer, nil
}
