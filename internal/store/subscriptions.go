package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// SubscriptionStore tracks whether the current member is subscribed to an
// issue's notifications. Like reactions, subscriptions toggle: subscribing
// twice or unsubscribing while not subscribed are silent no-ops.
type SubscriptionStore struct {
	svc service.SubscriptionService
	c   *Container[model.Subscription]
}

// NewSubscriptionStore returns an empty subscription store backed by svc.
func NewSubscriptionStore(svc service.SubscriptionService) *SubscriptionStore {
	return &SubscriptionStore{svc: svc, c: NewContainer[model.Subscription]()}
}

// Fetch loads the member's subscription state for an issue.
func (s *SubscriptionStore) Fetch(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	sub, ok, err := s.svc.Get(ctx, scope, issueID, memberID)
	if err != nil {
		return fmt.Errorf("fetching subscription: %w", err)
	}
	if ok {
		s.c.UpsertMany(issueID, []model.Subscription{sub})
	} else {
		s.c.MarkLoaded(issueID)
	}
	return nil
}

// IsSubscribed reports whether memberID is subscribed to issueID. The
// second return value is false if the issue's subscription state has never
// been fetched (and was not set optimistically).
func (s *SubscriptionStore) IsSubscribed(issueID, memberID string) (bool, bool) {
	recs, ok := s.c.ListFor(issueID)
	if !ok {
		return false, false
	}
	for _, sub := range recs {
		if sub.MemberID == memberID {
			return true, true
		}
	}
	return false, true
}

// Subscribe subscribes the member optimistically and persists it. Already
// subscribed is a no-op. On service failure the optimistic record is
// removed.
func (s *SubscriptionStore) Subscribe(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	if err := model.ValidateID("member", memberID); err != nil {
		return err
	}
	if subscribed, loaded := s.IsSubscribed(issueID, memberID); loaded && subscribed {
		return nil
	}

	temp := model.Subscription{
		ID:        model.NewTempID(),
		IssueID:   issueID,
		MemberID:  memberID,
		CreatedAt: time.Now().UTC(),
	}
	s.c.Insert(issueID, temp)

	var created model.Subscription
	err := commit(ctx,
		func(ctx context.Context) error {
			sub, err := s.svc.Subscribe(ctx, scope, issueID, memberID)
			if err != nil {
				return fmt.Errorf("subscribing: %w", err)
			}
			created = sub
			return nil
		},
		func() { s.c.Remove(issueID, temp.ID) },
	)
	if err != nil {
		return err
	}

	s.c.ReplaceID(issueID, temp.ID, created)
	return nil
}

// Unsubscribe removes the member's subscription optimistically and persists
// it. Not locally subscribed is a no-op. On service failure the record is
// restored.
func (s *SubscriptionStore) Unsubscribe(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, loaded := s.c.ListFor(issueID)
	if !loaded {
		return nil
	}
	var target model.Subscription
	found := false
	for _, sub := range recs {
		if sub.MemberID == memberID {
			target, found = sub, true
			break
		}
	}
	if !found {
		return nil
	}

	removed, pos, ok := s.c.Remove(issueID, target.ID)
	if !ok {
		return nil
	}
	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Unsubscribe(ctx, scope, issueID, memberID); err != nil {
				return fmt.Errorf("unsubscribing: %w", err)
			}
			return nil
		},
		func() { s.c.InsertAt(issueID, removed, pos) },
	)
}
