package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// Sort orders are spaced by sortOrderStep so a block dropped between two
// neighbours can take the midpoint without touching any other block. When
// repeated moves squeeze a gap below minSortGap the midpoint stops being
// representable and the server is asked to rebalance the whole list.
const (
	sortOrderStep = 65536
	minSortGap    = 1e-4
)

// GanttStore holds the timeline blocks of a project, ordered by ascending
// sort order. Unlike the other stores its reorder operation does not roll
// back on failure: a failed move means the local ordering can no longer be
// trusted, so the store re-fetches the project's blocks and lets the
// server's answer win.
type GanttStore struct {
	svc service.GanttService
	c   *Container[model.GanttBlock]

	// onRefreshError receives errors from the recovery re-fetch after a
	// failed move. The move error itself is returned to the caller; a
	// refresh failure has no caller left to return to.
	onRefreshError func(error)
}

// NewGanttStore returns an empty gantt store backed by svc.
func NewGanttStore(svc service.GanttService) *GanttStore {
	return &GanttStore{svc: svc, c: NewContainer[model.GanttBlock]()}
}

// OnRefreshError registers the callback for recovery re-fetch failures.
func (s *GanttStore) OnRefreshError(fn func(error)) {
	s.onRefreshError = fn
}

func (s *GanttStore) reportRefreshError(err error) {
	if s.onRefreshError != nil {
		s.onRefreshError(err)
	}
}

// Fetch loads the project's timeline blocks, replacing any local ordering
// with the server's.
func (s *GanttStore) Fetch(ctx context.Context, scope service.Scope) error {
	recs, err := s.svc.List(ctx, scope)
	if err != nil {
		return fmt.Errorf("fetching timeline: %w", err)
	}
	sortBlocks(recs)
	s.c.ReplaceAll(scope.Project, recs)
	return nil
}

// Get returns a block by id.
func (s *GanttStore) Get(id string) (model.GanttBlock, bool) {
	return s.c.Get(id)
}

// Blocks returns the project's blocks in timeline order. The second return
// value is false if the project's timeline has never been fetched.
func (s *GanttStore) Blocks(projectID string) ([]model.GanttBlock, bool) {
	return s.c.ListFor(projectID)
}

// UpdateDates reschedules a block optimistically and persists the change.
// An inverted date range is a validation error before any state change.
// Updating a block that is not locally present is a precondition failure
// (ErrUnknownRecord). On service failure the snapshotted block is restored.
func (s *GanttStore) UpdateDates(ctx context.Context, scope service.Scope, blockID string, start, target time.Time) (model.GanttBlock, error) {
	snapshot, ok := s.c.Get(blockID)
	if !ok {
		return model.GanttBlock{}, fmt.Errorf("timeline block %s: %w", blockID, ErrUnknownRecord)
	}

	optimistic := snapshot
	optimistic.StartDate = start
	optimistic.TargetDate = target
	if err := optimistic.ValidateDateRange(); err != nil {
		return model.GanttBlock{}, err
	}
	s.c.Put(optimistic)

	fields := map[string]any{
		"start_date":  start,
		"target_date": target,
	}
	var updated model.GanttBlock
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Update(ctx, scope, blockID, fields)
			if err != nil {
				return fmt.Errorf("rescheduling block: %w", err)
			}
			updated = rec
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.GanttBlock{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// Move reorders a block to position newPos within the project's timeline.
// The block is moved locally and assigned the midpoint sort order between
// its new neighbours, then the new order is persisted. On service failure
// the store re-fetches the project's blocks instead of rolling back; a
// failure of that recovery fetch is reported through OnRefreshError.
// When the neighbouring gap is too small for a midpoint the move still
// persists, and a follow-up fetch picks up the server's rebalanced orders.
func (s *GanttStore) Move(ctx context.Context, scope service.Scope, blockID string, newPos int) error {
	block, ok := s.c.Get(blockID)
	if !ok {
		return fmt.Errorf("timeline block %s: %w", blockID, ErrUnknownRecord)
	}

	oldPos := s.c.MoveIndex(scope.Project, blockID, newPos)
	if oldPos < 0 {
		return fmt.Errorf("timeline block %s: %w", blockID, ErrUnknownRecord)
	}

	order, exhausted := s.sortOrderAt(scope.Project, blockID)
	block.SortOrder = order
	s.c.Put(block)

	_, err := s.svc.Update(ctx, scope, blockID, map[string]any{"sort_order": order})
	if err != nil {
		s.refresh(ctx, scope)
		return fmt.Errorf("moving block: %w", err)
	}
	if exhausted {
		// The midpoint collided with a neighbour; the server rebalances
		// the whole list, so reload it.
		s.refresh(ctx, scope)
	}
	return nil
}

// refresh replaces the project's blocks with the server's current list.
func (s *GanttStore) refresh(ctx context.Context, scope service.Scope) {
	recs, err := s.svc.List(ctx, scope)
	if err != nil {
		s.reportRefreshError(fmt.Errorf("refreshing timeline: %w", err))
		return
	}
	sortBlocks(recs)
	s.c.ReplaceAll(scope.Project, recs)
}

// sortOrderAt computes the sort order for the block at its current index
// position, between its neighbours' orders. The second return value is
// true when the neighbouring gap was too small for a distinct midpoint.
func (s *GanttStore) sortOrderAt(projectID, blockID string) (float64, bool) {
	recs, ok := s.c.ListFor(projectID)
	if !ok {
		return sortOrderStep, false
	}
	pos := -1
	for i, rec := range recs {
		if rec.ID == blockID {
			pos = i
			break
		}
	}
	switch {
	case pos < 0:
		return sortOrderStep, false
	case len(recs) == 1:
		return sortOrderStep, false
	case pos == 0:
		return recs[1].SortOrder - sortOrderStep, false
	case pos == len(recs)-1:
		return recs[pos-1].SortOrder + sortOrderStep, false
	}
	before := recs[pos-1].SortOrder
	after := recs[pos+1].SortOrder
	if after-before <= minSortGap {
		return before + minSortGap/2, true
	}
	return before + (after-before)/2, false
}

func sortBlocks(recs []model.GanttBlock) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SortOrder < recs[j].SortOrder
	})
}
