package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// issueUpdateFields is the set of keys accepted by IssueStore.Update.
var issueUpdateFields = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"priority":    true,
	"assignee_id": true,
	"parent_id":   true,
	"start_date":  true,
	"target_date": true,
}

// IssueStore holds issues, indexed by project id. It is the container the
// coordinator's counter callbacks write into: child stores report comment,
// link, and attachment count deltas here so list views stay consistent
// with detail views without refetching.
type IssueStore struct {
	svc service.IssueService
	c   *Container[model.Issue]
}

// NewIssueStore returns an empty issue store backed by svc.
func NewIssueStore(svc service.IssueService) *IssueStore {
	return &IssueStore{svc: svc, c: NewContainer[model.Issue]()}
}

// Fetch loads issues matching the filter into the store and returns the
// total matching count (ignoring pagination).
func (s *IssueStore) Fetch(ctx context.Context, scope service.Scope, f service.IssueFilter) (int, error) {
	recs, total, err := s.svc.List(ctx, scope, f)
	if err != nil {
		return 0, fmt.Errorf("fetching issues: %w", err)
	}
	s.c.UpsertMany(scope.Project, recs)
	return total, nil
}

// FetchOne loads a single issue into the store.
func (s *IssueStore) FetchOne(ctx context.Context, scope service.Scope, id string) (model.Issue, error) {
	if err := model.ValidateID("issue", id); err != nil {
		return model.Issue{}, err
	}
	rec, err := s.svc.Get(ctx, scope, id)
	if err != nil {
		return model.Issue{}, fmt.Errorf("fetching issue: %w", err)
	}
	s.c.Insert(scope.Project, rec)
	return rec, nil
}

// Get returns an issue by id.
func (s *IssueStore) Get(id string) (model.Issue, bool) {
	return s.c.Get(id)
}

// ByProject returns the project's loaded issues in insertion order. The
// second return value is false if the project has never been fetched.
func (s *IssueStore) ByProject(projectID string) ([]model.Issue, bool) {
	return s.c.ListFor(projectID)
}

// Create persists a new issue and inserts the server record into the
// store. Issue creation is deliberately not optimistic: callers navigate
// to the new issue immediately and need the server-assigned id.
func (s *IssueStore) Create(ctx context.Context, scope service.Scope, issue model.Issue) (model.Issue, error) {
	if strings.TrimSpace(issue.Title) == "" {
		return model.Issue{}, fmt.Errorf("empty issue title")
	}
	if err := model.ValidateStatus(issue.Status); err != nil {
		return model.Issue{}, err
	}
	if err := model.ValidatePriority(issue.Priority); err != nil {
		return model.Issue{}, err
	}

	created, err := s.svc.Create(ctx, scope, issue)
	if err != nil {
		return model.Issue{}, fmt.Errorf("creating issue: %w", err)
	}
	s.c.Insert(scope.Project, created)
	if created.ParentID != "" {
		s.AdjustSubIssueCount(created.ParentID, +1)
	}
	return created, nil
}

// Update patches an issue's fields optimistically and persists the patch.
// Field keys are validated against an allowlist and enum values are
// validated before any state change. Updating an issue that is not locally
// present is a precondition failure (ErrUnknownRecord). On service failure
// the snapshotted record is restored exactly; on success the server's
// record wins.
func (s *IssueStore) Update(ctx context.Context, scope service.Scope, id string, fields map[string]any) (model.Issue, error) {
	if len(fields) == 0 {
		return model.Issue{}, fmt.Errorf("no fields to update")
	}
	for k := range fields {
		if !issueUpdateFields[k] {
			return model.Issue{}, fmt.Errorf("invalid issue field %q", k)
		}
	}
	if v, ok := fields["status"].(string); ok {
		if err := model.ValidateStatus(model.Status(v)); err != nil {
			return model.Issue{}, err
		}
	}
	if v, ok := fields["priority"].(string); ok {
		if err := model.ValidatePriority(model.Priority(v)); err != nil {
			return model.Issue{}, err
		}
	}
	snapshot, ok := s.c.Get(id)
	if !ok {
		return model.Issue{}, fmt.Errorf("issue %s: %w", id, ErrUnknownRecord)
	}

	optimistic := applyIssueFields(snapshot, fields)
	optimistic.UpdatedAt = time.Now().UTC()
	s.c.Put(optimistic)

	var updated model.Issue
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Update(ctx, scope, id, fields)
			if err != nil {
				return fmt.Errorf("updating issue: %w", err)
			}
			updated = rec
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.Issue{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// Remove deletes an issue optimistically and persists the deletion.
// Removing an issue that is not locally present is a precondition failure
// (ErrUnknownRecord). On service failure the record is restored at its
// previous position.
func (s *IssueStore) Remove(ctx context.Context, scope service.Scope, id string) error {
	removed, pos, ok := s.c.Remove(scope.Project, id)
	if !ok {
		return fmt.Errorf("issue %s: %w", id, ErrUnknownRecord)
	}
	if removed.ParentID != "" {
		s.AdjustSubIssueCount(removed.ParentID, -1)
	}

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, id); err != nil {
				return fmt.Errorf("removing issue: %w", err)
			}
			return nil
		},
		func() {
			s.c.InsertAt(scope.Project, removed, pos)
			if removed.ParentID != "" {
				s.AdjustSubIssueCount(removed.ParentID, +1)
			}
		},
	)
}

// AdjustCommentCount shifts an issue's comment counter by delta, clamping
// at zero. Unknown issues are ignored: a counter for an issue that is not
// loaded has nothing to stay consistent with.
func (s *IssueStore) AdjustCommentCount(issueID string, delta int) {
	s.c.Update(issueID, func(i model.Issue) model.Issue {
		i.CommentCount = clampCount(i.CommentCount + delta)
		return i
	})
}

// AdjustLinkCount shifts an issue's link counter by delta, clamping at zero.
func (s *IssueStore) AdjustLinkCount(issueID string, delta int) {
	s.c.Update(issueID, func(i model.Issue) model.Issue {
		i.LinkCount = clampCount(i.LinkCount + delta)
		return i
	})
}

// AdjustAttachmentCount shifts an issue's attachment counter by delta,
// clamping at zero.
func (s *IssueStore) AdjustAttachmentCount(issueID string, delta int) {
	s.c.Update(issueID, func(i model.Issue) model.Issue {
		i.AttachmentCount = clampCount(i.AttachmentCount + delta)
		return i
	})
}

// AdjustSubIssueCount shifts an issue's sub-issue counter by delta,
// clamping at zero.
func (s *IssueStore) AdjustSubIssueCount(issueID string, delta int) {
	s.c.Update(issueID, func(i model.Issue) model.Issue {
		i.SubIssueCount = clampCount(i.SubIssueCount + delta)
		return i
	})
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// applyIssueFields returns a copy of issue with the patch applied. Keys
// have already been validated against issueUpdateFields.
func applyIssueFields(issue model.Issue, fields map[string]any) model.Issue {
	if v, ok := fields["title"].(string); ok {
		issue.Title = v
	}
	if v, ok := fields["description"].(string); ok {
		issue.Description = v
	}
	if v, ok := fields["status"].(string); ok {
		issue.Status = model.Status(v)
	}
	if v, ok := fields["priority"].(string); ok {
		issue.Priority = model.Priority(v)
	}
	if v, ok := fields["assignee_id"].(string); ok {
		issue.AssigneeID = v
	}
	if v, ok := fields["parent_id"].(string); ok {
		issue.ParentID = v
	}
	if v, ok := fields["start_date"].(time.Time); ok {
		issue.StartDate = v
	}
	if v, ok := fields["target_date"].(time.Time); ok {
		issue.TargetDate = v
	}
	return issue
}
