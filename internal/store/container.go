// Package store holds the client-side state layer: one in-memory container
// per entity type, optimistic mutators that apply local changes before the
// service call settles, and the coordinator that wires cross-container
// side effects. Reads are served from memory; the service interfaces in
// internal/service are the only path to persistence.
package store

import "sync"

// Record is any entity value a Container can hold.
type Record interface {
	RecordID() string
}

// Container is a normalized in-memory map from record id to record, plus an
// index from parent id to the ordered list of child record ids. A parent id
// appears in the index only after it has been loaded (or marked loaded), so
// accessors can distinguish "never fetched" from "fetched, zero children".
//
// All methods are safe for concurrent use. Mutators hold the lock only for
// the local state transition; service calls never run under the lock.
type Container[T Record] struct {
	mu      sync.RWMutex
	records map[string]T
	index   map[string][]string
}

// NewContainer returns an empty container.
func NewContainer[T Record]() *Container[T] {
	return &Container[T]{
		records: make(map[string]T),
		index:   make(map[string][]string),
	}
}

// Get returns the record with the given id.
func (c *Container[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

// IDsFor returns a copy of the child id list for parentID. The second
// return value is false if the parent has never been loaded; a loaded
// parent with no children yields an empty slice and true.
func (c *Container[T]) IDsFor(parentID string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.index[parentID]
	if !ok {
		return nil, false
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, true
}

// ListFor returns the child records for parentID in index order. Ids
// without a record are skipped; the index is append-first during optimistic
// inserts, so the two maps are only ever transiently out of step inside a
// single locked transition, never observably.
func (c *Container[T]) ListFor(parentID string) ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.index[parentID]
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if rec, ok := c.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, true
}

// MarkLoaded records that parentID has been fetched, creating an empty
// index entry if none exists. Called after a fetch that returned zero
// children so IDsFor reports loaded-empty rather than never-loaded.
func (c *Container[T]) MarkLoaded(parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[parentID]; !ok {
		c.index[parentID] = []string{}
	}
}

// UpsertMany merges a batch of fetched records into the container and
// appends their ids to the parent index, de-duplicating by id. Re-inserted
// ids keep their first-seen position; their records are replaced with the
// fresh values. The parent is marked loaded even when recs is empty.
func (c *Container[T]) UpsertMany(parentID string, recs []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.index[parentID]
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, rec := range recs {
		id := rec.RecordID()
		c.records[id] = rec
		if _, dup := seen[id]; !dup {
			ids = append(ids, id)
			seen[id] = struct{}{}
		}
	}
	if ids == nil {
		ids = []string{}
	}
	c.index[parentID] = ids
}

// ReplaceAll rewrites the parent index to match recs exactly, in the given
// order, storing every record. Unlike UpsertMany it does not preserve
// first-seen positions: it is the authoritative-reload path used when local
// ordering has been invalidated and the server's answer should win.
func (c *Container[T]) ReplaceAll(parentID string, recs []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.index[parentID]
	keep := make(map[string]struct{}, len(recs))
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		id := rec.RecordID()
		c.records[id] = rec
		keep[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range old {
		if _, ok := keep[id]; !ok {
			delete(c.records, id)
		}
	}
	c.index[parentID] = ids
}

// Update applies fn to the record with the given id under the write lock,
// storing the result. It reports whether the record existed. Used for
// read-modify-write transitions such as counter adjustments.
func (c *Container[T]) Update(id string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return false
	}
	c.records[id] = fn(rec)
	return true
}

// MoveIndex moves id to position newPos within the parent index, clamped
// to the list bounds. It returns the previous position, or -1 when id is
// not indexed under parentID.
func (c *Container[T]) MoveIndex(parentID, id string, newPos int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.index[parentID]
	oldPos := -1
	for i, existing := range ids {
		if existing == id {
			oldPos = i
			break
		}
	}
	if oldPos < 0 {
		return -1
	}
	ids = append(ids[:oldPos], ids[oldPos+1:]...)
	if newPos < 0 {
		newPos = 0
	}
	if newPos > len(ids) {
		newPos = len(ids)
	}
	ids = append(ids, "")
	copy(ids[newPos+1:], ids[newPos:])
	ids[newPos] = id
	c.index[parentID] = ids
	return oldPos
}

// Insert appends rec to the parent index and stores its record. A record
// whose id is already indexed is replaced in place.
func (c *Container[T]) Insert(parentID string, rec T) {
	c.InsertAt(parentID, rec, -1)
}

// InsertAt inserts rec into the parent index at position pos, clamped to
// the list bounds; pos < 0 appends. Used by rollbacks to restore a removed
// record at its captured position.
func (c *Container[T]) InsertAt(parentID string, rec T, pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := rec.RecordID()
	c.records[id] = rec
	ids := c.index[parentID]
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	if pos < 0 || pos > len(ids) {
		pos = len(ids)
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	c.index[parentID] = ids
}

// Put replaces (or creates) the record for rec's id without touching any
// index. Used to restore a snapshotted record after a failed update and to
// merge authoritative server fields after a successful one.
func (c *Container[T]) Put(rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.RecordID()] = rec
}

// ReplaceID swaps the record stored under oldID for rec, rewriting the
// parent index entry in place so the record keeps its position. This is the
// reconciliation step that trades a client temporary id for the
// server-assigned one.
func (c *Container[T]) ReplaceID(parentID, oldID string, rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, oldID)
	c.records[rec.RecordID()] = rec
	ids := c.index[parentID]
	for i, id := range ids {
		if id == oldID {
			ids[i] = rec.RecordID()
			break
		}
	}
}

// Remove deletes the record and its index entry, returning the removed
// record and its position in the parent index so a rollback can restore
// both. Position -1 means the id was not indexed under parentID.
func (c *Container[T]) Remove(parentID, id string) (T, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, -1, false
	}
	delete(c.records, id)
	pos := -1
	ids := c.index[parentID]
	for i, existing := range ids {
		if existing == id {
			pos = i
			c.index[parentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return rec, pos, true
}

// RemoveIndexEntry removes id from the parent index only, leaving the
// record in place. It returns the removed position, or -1 when id is not
// indexed under parentID. Used by records indexed under several parents,
// where the record itself must outlive the first index removal.
func (c *Container[T]) RemoveIndexEntry(parentID, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.index[parentID]
	for i, existing := range ids {
		if existing == id {
			c.index[parentID] = append(ids[:i], ids[i+1:]...)
			return i
		}
	}
	return -1
}

// Delete removes the record for id without touching any index.
func (c *Container[T]) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
}

// Len returns the number of records held.
func (c *Container[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Reset drops all records and indices.
func (c *Container[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]T)
	c.index = make(map[string][]string)
}
