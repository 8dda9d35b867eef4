package store

import (
	"context"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// ActivityStore holds the per-issue change log. The log is written
// server-side as a by-product of mutations; this store only reads it.
type ActivityStore struct {
	svc service.ActivityService
	c   *Container[model.Activity]
}

// NewActivityStore returns an empty activity store backed by svc.
func NewActivityStore(svc service.ActivityService) *ActivityStore {
	return &ActivityStore{svc: svc, c: NewContainer[model.Activity]()}
}

// Fetch loads an issue's activity log from the service. The server's
// ordering wins; local entries not in the response are dropped.
func (s *ActivityStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching activity: %w", err)
	}
	s.c.ReplaceAll(issueID, recs)
	return nil
}

// ByIssue returns the issue's activity entries in server order. The second
// return value is false if the issue's activity has never been fetched.
func (s *ActivityStore) ByIssue(issueID string) ([]model.Activity, bool) {
	return s.c.ListFor(issueID)
}
