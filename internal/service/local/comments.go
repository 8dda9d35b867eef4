package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

type commentService struct {
	s *Store
}

// List retrieves all comments for an issue, ordered by creation time
// ascending.
func (svc *commentService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Comment, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, body, author_id, created_at, updated_at
		 FROM comments WHERE issue_id = ? ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanCommentFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	return comments, nil
}

// Create inserts a new comment, records activity, and returns the stored
// row. The insert and activity log are wrapped in a single transaction so
// they succeed or fail together.
func (svc *commentService) Create(ctx context.Context, scope service.Scope, issueID string, comment model.Comment) (model.Comment, error) {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Comment{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, issueID); err != nil {
		return model.Comment{}, err
	}

	comment.ID = model.NewID()
	comment.IssueID = issueID
	now := nowStamp()

	_, err = tx.Exec(
		`INSERT INTO comments (id, issue_id, body, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.IssueID, comment.Body, nullString(comment.AuthorID), now, now,
	)
	if err != nil {
		return model.Comment{}, fmt.Errorf("inserting comment: %w", err)
	}

	// Touch the issue's updated_at so recently-commented issues surface
	// in sorted lists.
	if _, err := tx.Exec(`UPDATE issues SET updated_at = ? WHERE id = ?`, now, issueID); err != nil {
		return model.Comment{}, fmt.Errorf("updating issue timestamp: %w", err)
	}

	if err := recordActivity(tx, issueID, "comment_added", "", comment.Body, comment.AuthorID); err != nil {
		return model.Comment{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Comment{}, fmt.Errorf("committing transaction: %w", err)
	}

	return svc.get(ctx, comment.ID)
}

// Update replaces a comment's body and returns the stored row.
func (svc *commentService) Update(ctx context.Context, scope service.Scope, issueID, id, body string) (model.Comment, error) {
	res, err := svc.s.db.ExecContext(ctx,
		`UPDATE comments SET body = ?, updated_at = ? WHERE id = ? AND issue_id = ?`,
		body, nowStamp(), id, issueID,
	)
	if err != nil {
		return model.Comment{}, fmt.Errorf("updating comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Comment{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.Comment{}, service.ErrNotFound
	}
	return svc.get(ctx, id)
}

// Remove deletes a comment.
func (svc *commentService) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND issue_id = ?`, id, issueID,
	)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (svc *commentService) get(ctx context.Context, id string) (model.Comment, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, body, author_id, created_at, updated_at
		 FROM comments WHERE id = ?`, id,
	)
	c, err := scanCommentFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, service.ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("scanning comment: %w", err)
	}
	return c, nil
}

// scanCommentFrom scans a single comment from any scanner.
func scanCommentFrom(s scanner) (model.Comment, error) {
	var c model.Comment
	var authorID sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&c.ID, &c.IssueID, &c.Body, &authorID, &createdAt, &updatedAt); err != nil {
		return model.Comment{}, err
	}
	c.AuthorID = authorID.String

	var err error
	if c.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Comment{}, err
	}
	if c.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// requireIssue returns ErrNotFound unless the issue exists in the scope's
// project.
func requireIssue(tx *sql.Tx, scope service.Scope, issueID string) error {
	var exists bool
	if err := tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM issues WHERE id = ? AND project_id = ?)",
		issueID, scope.Project,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking issue existence: %w", err)
	}
	if !exists {
		return service.ErrNotFound
	}
	return nil
}
