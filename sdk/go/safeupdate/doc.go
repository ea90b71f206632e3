// Package safeupdate guards document-store updates in process. It wraps a
// collection's update function and rejects two classic mistakes before the
// store is touched: an empty selector that would match every document, and
// a modifier without $-operators that would replace the whole document.
//
// Usage:
//
//	safeupdate.SetPolicy(safeupdate.Config{Except: []string{"logs"}})
//	counters := safeupdate.Wrap("counters", store.Collection("counters"))
//	_, err := counters.Update(ctx, safeupdate.Document{"_id": "counter"},
//	    safeupdate.Document{"count": 1}, safeupdate.UpdateOptions{})
//	if errors.Is(err, safeupdate.ErrNoModifierOperator) {
//	    // pass UpdateOptions{Replace: true} to replace on purpose
//	}
//
// The package-level functions share one process-wide policy. Use New for an
// isolated Client with its own policy, audit log and logger.
package safeupdate
