package store

import "context"

// commit runs the remote half of an optimistic mutation. The caller has
// already applied the local change and built revert, a closure over the
// pre-mutation snapshot. If the service call fails, revert restores exactly
// the captured state and the error propagates to the caller; the local
// optimistic change is otherwise left for the success path to reconcile.
//
// revert must restore only what the operation itself changed, keyed by
// record id and index position, never by wholesale list replacement: other
// operations may have settled against the same parent while this call was
// in flight, and their results must survive this rollback.
func commit(ctx context.Context, call func(context.Context) error, revert func()) error {
	if err := call(ctx); err != nil {
		revert()
		return err
	}
	return nil
}
