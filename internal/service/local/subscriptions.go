package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

type subscriptionService struct {
	s *Store
}

// Get returns the member's subscription for an issue, with ok=false when
// none exists.
func (svc *subscriptionService) Get(ctx context.Context, scope service.Scope, issueID, memberID string) (model.Subscription, bool, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, member_id, created_at
		 FROM subscriptions WHERE issue_id = ? AND member_id = ?`, issueID, memberID,
	)
	sub, err := scanSubscriptionFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Subscription{}, false, nil
		}
		return model.Subscription{}, false, fmt.Errorf("scanning subscription: %w", err)
	}
	return sub, true, nil
}

// Subscribe adds the member's subscription. Subscribing twice is
// idempotent and returns the existing row.
func (svc *subscriptionService) Subscribe(ctx context.Context, scope service.Scope, issueID, memberID string) (model.Subscription, error) {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, issueID); err != nil {
		return model.Subscription{}, err
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO subscriptions (id, issue_id, member_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		model.NewID(), issueID, memberID, nowStamp(),
	); err != nil {
		return model.Subscription{}, fmt.Errorf("inserting subscription: %w", err)
	}

	row := tx.QueryRow(
		`SELECT id, issue_id, member_id, created_at
		 FROM subscriptions WHERE issue_id = ? AND member_id = ?`, issueID, memberID,
	)
	sub, err := scanSubscriptionFrom(row)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("reading subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Subscription{}, fmt.Errorf("committing transaction: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes the member's subscription. Removing an absent
// subscription is not an error.
func (svc *subscriptionService) Unsubscribe(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	_, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE issue_id = ? AND member_id = ?`, issueID, memberID,
	)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

func scanSubscriptionFrom(s scanner) (model.Subscription, error) {
	var sub model.Subscription
	var createdAt string
	if err := s.Scan(&sub.ID, &sub.IssueID, &sub.MemberID, &createdAt); err != nil {
		return model.Subscription{}, err
	}
	var err error
	if sub.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}
