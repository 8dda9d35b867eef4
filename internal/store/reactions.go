package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// ReactionStore holds emoji reactions, indexed by issue id.
//
// Reactions are toggle-shaped: creating an already-present reaction and
// removing an absent one are both silent no-ops, so double-clicks and
// stale UI state never surface as errors.
type ReactionStore struct {
	svc service.ReactionService
	c   *Container[model.Reaction]
}

// NewReactionStore returns an empty reaction store backed by svc.
func NewReactionStore(svc service.ReactionService) *ReactionStore {
	return &ReactionStore{svc: svc, c: NewContainer[model.Reaction]()}
}

// Fetch loads all reactions for an issue from the service.
func (s *ReactionStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching reactions: %w", err)
	}
	s.c.UpsertMany(issueID, recs)
	return nil
}

// Get returns a reaction by id.
func (s *ReactionStore) Get(id string) (model.Reaction, bool) {
	return s.c.Get(id)
}

// ByIssue groups the issue's reaction ids by emoji, preserving insertion
// order within each group. The second return value is false if the issue's
// reactions have never been fetched.
func (s *ReactionStore) ByIssue(issueID string) (map[string][]string, bool) {
	recs, ok := s.c.ListFor(issueID)
	if !ok {
		return nil, false
	}
	grouped := make(map[string][]string)
	for _, r := range recs {
		grouped[r.Emoji] = append(grouped[r.Emoji], r.ID)
	}
	return grouped, true
}

// Records returns the issue's reactions in insertion order. The second
// return value is false if the issue's reactions have never been fetched.
func (s *ReactionStore) Records(issueID string) ([]model.Reaction, bool) {
	return s.c.ListFor(issueID)
}

// Find returns the reaction a member left with the given emoji, if any.
func (s *ReactionStore) Find(issueID, emoji, memberID string) (model.Reaction, bool) {
	recs, ok := s.c.ListFor(issueID)
	if !ok {
		return model.Reaction{}, false
	}
	for _, r := range recs {
		if r.Emoji == emoji && r.MemberID == memberID {
			return r, true
		}
	}
	return model.Reaction{}, false
}

// Create adds a reaction optimistically and persists it. The local record
// carries a temporary id until the server response replaces it in place.
// If the member already reacted with this emoji the existing reaction is
// returned unchanged. On service failure the optimistic record is removed
// and the error is returned.
func (s *ReactionStore) Create(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) (model.Reaction, error) {
	if err := model.ValidateID("issue", issueID); err != nil {
		return model.Reaction{}, err
	}
	if err := model.ValidateID("member", memberID); err != nil {
		return model.Reaction{}, err
	}
	if err := model.ValidateEmoji(emoji); err != nil {
		return model.Reaction{}, err
	}
	if existing, ok := s.Find(issueID, emoji, memberID); ok {
		return existing, nil
	}

	temp := model.Reaction{
		ID:        model.NewTempID(),
		IssueID:   issueID,
		MemberID:  memberID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	s.c.Insert(issueID, temp)

	var created model.Reaction
	err := commit(ctx,
		func(ctx context.Context) error {
			rec, err := s.svc.Create(ctx, scope, issueID, emoji, memberID)
			if err != nil {
				return fmt.Errorf("creating reaction: %w", err)
			}
			created = rec
			return nil
		},
		func() { s.c.Remove(issueID, temp.ID) },
	)
	if err != nil {
		return model.Reaction{}, err
	}

	s.c.ReplaceID(issueID, temp.ID, created)
	return created, nil
}

// Remove deletes the member's reaction with the given emoji, optimistically
// first. Removing a reaction that is not locally present is a no-op. On
// service failure the record is restored at its previous position.
func (s *ReactionStore) Remove(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	if err := model.ValidateID("member", memberID); err != nil {
		return err
	}
	rec, ok := s.Find(issueID, emoji, memberID)
	if !ok {
		return nil
	}

	removed, pos, ok := s.c.Remove(issueID, rec.ID)
	if !ok {
		return nil
	}
	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, issueID, emoji, memberID); err != nil {
				return fmt.Errorf("removing reaction: %w", err)
			}
			return nil
		},
		func() { s.c.InsertAt(issueID, removed, pos) },
	)
}
