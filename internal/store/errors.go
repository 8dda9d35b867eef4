package store

import "errors"

// Sentinel errors for precondition failures. These are raised synchronously
// before any state mutation or service call, so a caller seeing one of them
// knows local state is untouched.
var (
	// ErrNotLoaded is returned when an operation requires a parent scope
	// that has never been fetched into the store.
	ErrNotLoaded = errors.New("not loaded")

	// ErrUnknownRecord is returned when a mutation targets an entity that
	// is absent from local state. Toggle-style operations (reactions,
	// subscriptions) treat the absent case as a no-op instead; see each
	// operation's doc comment for its policy.
	ErrUnknownRecord = errors.New("unknown record")

	// ErrSelfRelation is returned when an issue is related to itself.
	ErrSelfRelation = errors.New("self-referential relation")

	// ErrDuplicateRelation is returned when a relation between the same
	// pair of issues already exists locally in either direction.
	ErrDuplicateRelation = errors.New("duplicate relation")
)
