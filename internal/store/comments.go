package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// CommentStore holds issue comments, indexed by issue id.
//
// The onCountChange callback, when set, is invoked with the issue id and a
// delta whenever the local comment count changes, including the rollback
// path, so counters stay consistent with the list. The coordinator injects
// it to keep the parent issue's CommentCount in step without a package
// dependency from comments onto issues.
type CommentStore struct {
	svc           service.CommentService
	c             *Container[model.Comment]
	onCountChange func(issueID string, delta int)
}

// NewCommentStore returns an empty comment store backed by svc.
func NewCommentStore(svc service.CommentService) *CommentStore {
	return &CommentStore{svc: svc, c: NewContainer[model.Comment]()}
}

// OnCountChange registers the cross-container counter callback.
func (s *CommentStore) OnCountChange(fn func(issueID string, delta int)) {
	s.onCountChange = fn
}

func (s *CommentStore) notify(issueID string, delta int) {
	if s.onCountChange != nil {
		s.onCountChange(issueID, delta)
	}
}

// Fetch loads all comments for an issue from the service.
func (s *CommentStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching comments: %w", err)
	}
	s.c.UpsertMany(issueID, recs)
	return nil
}

// Get returns a comment by id.
func (s *CommentStore) Get(id string) (model.Comment, bool) {
	return s.c.Get(id)
}

// ByIssue returns the issue's comments in insertion order. The second
// return value is false if the issue's comments have never been fetched.
func (s *CommentStore) ByIssue(issueID string) ([]model.Comment, bool) {
	return s.c.ListFor(issueID)
}

// Create adds a comment optimistically and persists it. The comment count
// callback fires before the service call resolves, so the parent issue's
// counter updates optimistically too. On failure both the comment and the
// counter change are rolled back.
func (s *CommentStore) Create(ctx context.Context, scope service.Scope, issueID, body, authorID string) (model.Comment, error) {
	if err := model.ValidateID("issue", issueID); err != nil {
		return model.Comment{}, err
	}
	if strings.TrimSpace(body) == "" {
		return model.Comment{}, fmt.Errorf("empty comment body")
	}

	now := time.Now().UTC()
	temp := model.Comment{
		ID:        model.NewTempID(),
		IssueID:   issueID,
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.c.Insert(issueID, temp)
	s.notify(issueID, +1)

	var created model.Comment
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Create(ctx, scope, issueID, temp)
			if err != nil {
				return fmt.Errorf("creating comment: %w", err)
			}
			created = rec
			return nil
		},
		func() {
			s.c.Remove(issueID, temp.ID)
			s.notify(issueID, -1)
		},
	)
	if err != nil {
		return model.Comment{}, err
	}

	s.c.ReplaceID(issueID, temp.ID, created)
	return created, nil
}

// Update replaces a comment's body optimistically and persists it. Updating
// a comment that is not locally present is a precondition failure
// (ErrUnknownRecord): no state is touched and no call is made. On service
// failure the snapshotted record is restored exactly.
func (s *CommentStore) Update(ctx context.Context, scope service.Scope, issueID, id, body string) (model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return model.Comment{}, fmt.Errorf("empty comment body")
	}
	snapshot, ok := s.c.Get(id)
	if !ok {
		return model.Comment{}, fmt.Errorf("comment %s: %w", id, ErrUnknownRecord)
	}

	optimistic := snapshot
	optimistic.Body = body
	optimistic.UpdatedAt = time.Now().UTC()
	s.c.Put(optimistic)

	var updated model.Comment
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Update(ctx, scope, issueID, id, body)
			if err != nil {
				return fmt.Errorf("updating comment: %w", err)
			}
			updated = rec
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.Comment{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// Remove deletes a comment optimistically and persists the deletion.
// Removing a comment that is not locally present is a precondition failure
// (ErrUnknownRecord). On service failure the record is restored at its
// previous position and the counter change is reverted.
func (s *CommentStore) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	removed, pos, ok := s.c.Remove(issueID, id)
	if !ok {
		return fmt.Errorf("comment %s: %w", id, ErrUnknownRecord)
	}
	s.notify(issueID, -1)

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, issueID, id); err != nil {
				return fmt.Errorf("removing comment: %w", err)
			}
			return nil
		},
		func() {
			s.c.InsertAt(issueID, removed, pos)
			s.notify(issueID, +1)
		},
	)
}
