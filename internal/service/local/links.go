package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// validLinkFields is the set of columns allowed in link Update.
var validLinkFields = map[string]bool{
	"title": true,
	"url":   true,
}

type linkService struct {
	s *Store
}

// List retrieves all links on an issue, oldest first.
func (svc *linkService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Link, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, title, url, created_at
		 FROM links WHERE issue_id = ? ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	links := make([]model.Link, 0)
	for rows.Next() {
		l, err := scanLinkFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning link row: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Create inserts a new link and returns the stored row.
func (svc *linkService) Create(ctx context.Context, scope service.Scope, issueID string, link model.Link) (model.Link, error) {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Link{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, issueID); err != nil {
		return model.Link{}, err
	}

	link.ID = model.NewID()
	link.IssueID = issueID
	if _, err := tx.Exec(
		`INSERT INTO links (id, issue_id, title, url, created_at) VALUES (?, ?, ?, ?, ?)`,
		link.ID, link.IssueID, nullString(link.Title), link.URL, nowStamp(),
	); err != nil {
		return model.Link{}, fmt.Errorf("inserting link: %w", err)
	}

	if err := recordActivity(tx, issueID, "link_added", "", link.URL, svc.s.actor); err != nil {
		return model.Link{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Link{}, fmt.Errorf("committing transaction: %w", err)
	}
	return svc.get(ctx, link.ID)
}

// Update modifies a link's title or url.
func (svc *linkService) Update(ctx context.Context, scope service.Scope, issueID, linkID string, fields map[string]any) (model.Link, error) {
	if len(fields) == 0 {
		return svc.get(ctx, linkID)
	}

	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var setClauses []string
	var args []any
	for _, field := range names {
		if !validLinkFields[field] {
			return model.Link{}, fmt.Errorf("invalid update field %q", field)
		}
		setClauses = append(setClauses, field+" = ?")
		args = append(args, fields[field])
	}
	args = append(args, linkID, issueID)

	res, err := svc.s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE links SET %s WHERE id = ? AND issue_id = ?", strings.Join(setClauses, ", ")),
		args...,
	)
	if err != nil {
		return model.Link{}, fmt.Errorf("updating link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Link{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.Link{}, service.ErrNotFound
	}
	return svc.get(ctx, linkID)
}

// Remove deletes a link.
func (svc *linkService) Remove(ctx context.Context, scope service.Scope, issueID, linkID string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM links WHERE id = ? AND issue_id = ?`, linkID, issueID,
	)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
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

func (svc *linkService) get(ctx context.Context, id string) (model.Link, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, title, url, created_at FROM links WHERE id = ?`, id,
	)
	l, err := scanLinkFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Link{}, service.ErrNotFound
		}
		return model.Link{}, fmt.Errorf("scanning link: %w", err)
	}
	return l, nil
}

func scanLinkFrom(s scanner) (model.Link, error) {
	var l model.Link
	var title sql.NullString
	var createdAt string
	if err := s.Scan(&l.ID, &l.IssueID, &title, &l.URL, &createdAt); err != nil {
		return model.Link{}, err
	}
	l.Title = title.String
	var err error
	if l.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Link{}, err
	}
	return l, nil
}
