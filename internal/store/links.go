package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// linkUpdateFields is the set of keys accepted by LinkStore.Update.
var linkUpdateFields = map[string]bool{
	"title": true,
	"url":   true,
}

// LinkStore holds issue links, indexed by issue id. The counter callback
// keeps the parent issue's LinkCount in step, exactly as CommentStore does
// for comments.
type LinkStore struct {
	svc           service.LinkService
	c             *Container[model.Link]
	onCountChange func(issueID string, delta int)
}

// NewLinkStore returns an empty link store backed by svc.
func NewLinkStore(svc service.LinkService) *LinkStore {
	return &LinkStore{svc: svc, c: NewContainer[model.Link]()}
}

// OnCountChange registers the cross-container counter callback.
func (s *LinkStore) OnCountChange(fn func(issueID string, delta int)) {
	s.onCountChange = fn
}

func (s *LinkStore) notify(issueID string, delta int) {
	if s.onCountChange != nil {
		s.onCountChange(issueID, delta)
	}
}

// Fetch loads all links for an issue from the service.
func (s *LinkStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching links: %w", err)
	}
	s.c.UpsertMany(issueID, recs)
	return nil
}

// Get returns a link by id.
func (s *LinkStore) Get(id string) (model.Link, bool) {
	return s.c.Get(id)
}

// ByIssue returns the issue's links in insertion order. The second return
// value is false if the issue's links have never been fetched.
func (s *LinkStore) ByIssue(issueID string) ([]model.Link, bool) {
	return s.c.ListFor(issueID)
}

// Create adds a link optimistically and persists it. On failure the
// optimistic record and the counter change are rolled back.
func (s *LinkStore) Create(ctx context.Context, scope service.Scope, issueID, title, rawURL string) (model.Link, error) {
	if err := model.ValidateID("issue", issueID); err != nil {
		return model.Link{}, err
	}
	if err := model.ValidateURL(rawURL); err != nil {
		return model.Link{}, err
	}

	temp := model.Link{
		ID:        model.NewTempID(),
		IssueID:   issueID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: time.Now().UTC(),
	}
	s.c.Insert(issueID, temp)
	s.notify(issueID, +1)

	var created model.Link
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Create(ctx, scope, issueID, temp)
			if err != nil {
				return fmt.Errorf("creating link: %w", err)
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
		return model.Link{}, err
	}

	s.c.ReplaceID(issueID, temp.ID, created)
	return created, nil
}

// Update patches a link's fields optimistically and persists the patch.
// Only "title" and "url" keys are accepted. Updating a link that is not
// locally present is a precondition failure (ErrUnknownRecord). On service
// failure the snapshotted record is restored exactly; on success the
// server's record wins over the optimistic guess.
func (s *LinkStore) Update(ctx context.Context, scope service.Scope, issueID, id string, fields map[string]any) (model.Link, error) {
	if len(fields) == 0 {
		return model.Link{}, fmt.Errorf("no fields to update")
	}
	for k := range fields {
		if !linkUpdateFields[k] {
			return model.Link{}, fmt.Errorf("invalid link field %q", k)
		}
	}
	if raw, ok := fields["url"].(string); ok {
		if err := model.ValidateURL(raw); err != nil {
			return model.Link{}, err
		}
	}
	snapshot, ok := s.c.Get(id)
	if !ok {
		return model.Link{}, fmt.Errorf("link %s: %w", id, ErrUnknownRecord)
	}

	optimistic := snapshot
	if v, ok := fields["title"].(string); ok {
		optimistic.Title = v
	}
	if v, ok := fields["url"].(string); ok {
		optimistic.URL = v
	}
	s.c.Put(optimistic)

	var updated model.Link
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Update(ctx, scope, issueID, id, fields)
			if err != nil {
				return fmt.Errorf("updating link: %w", err)
			}
			updated = rec
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.Link{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// Remove deletes a link optimistically and persists the deletion. Removing
// a link that is not locally present is a precondition failure
// (ErrUnknownRecord). On service failure the record is restored at its
// previous position and the counter change is reverted.
func (s *LinkStore) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	removed, pos, ok := s.c.Remove(issueID, id)
	if !ok {
		return fmt.Errorf("link %s: %w", id, ErrUnknownRecord)
	}
	s.notify(issueID, -1)

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, issueID, id); err != nil {
				return fmt.Errorf("removing link: %w", err)
			}
			return nil
		},
		func() {
			s.c.InsertAt(issueID, removed, pos)
			s.notify(issueID, +1)
		},
	)
}
