package local

import (
	"context"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

type reactionService struct {
	s *Store
}

// List retrieves all reactions on an issue, oldest first.
func (svc *reactionService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Reaction, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, member_id, emoji, created_at
		 FROM reactions WHERE issue_id = ? ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]model.Reaction, 0)
	for rows.Next() {
		r, err := scanReactionFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reaction row: %w", err)
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// Create adds a member's reaction. Reacting again with the same emoji is
// idempotent and returns the existing row.
func (svc *reactionService) Create(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) (model.Reaction, error) {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reaction{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, issueID); err != nil {
		return model.Reaction{}, err
	}

	id := model.NewID()
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO reactions (id, issue_id, member_id, emoji, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, issueID, memberID, emoji, nowStamp(),
	); err != nil {
		return model.Reaction{}, fmt.Errorf("inserting reaction: %w", err)
	}

	// The unique constraint may have kept an earlier row; read back
	// whichever one holds.
	row := tx.QueryRow(
		`SELECT id, issue_id, member_id, emoji, created_at
		 FROM reactions WHERE issue_id = ? AND member_id = ? AND emoji = ?`,
		issueID, memberID, emoji,
	)
	r, err := scanReactionFrom(row)
	if err != nil {
		return model.Reaction{}, fmt.Errorf("reading reaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Reaction{}, fmt.Errorf("committing transaction: %w", err)
	}
	return r, nil
}

// Remove deletes a member's reaction. Removing an absent reaction is not
// an error; the hosted API treats it as an idempotent toggle and so does
// this backend.
func (svc *reactionService) Remove(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) error {
	_, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE issue_id = ? AND member_id = ? AND emoji = ?`,
		issueID, memberID, emoji,
	)
	if err != nil {
		return fmt.Errorf("deleting reaction: %w", err)
	}
	return nil
}

func scanReactionFrom(s scanner) (model.Reaction, error) {
	var r model.Reaction
	var createdAt string
	if err := s.Scan(&r.ID, &r.IssueID, &r.MemberID, &r.Emoji, &createdAt); err != nil {
		return model.Reaction{}, err
	}
	var err error
	if r.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Reaction{}, err
	}
	return r, nil
}
