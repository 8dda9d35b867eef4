package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// ErrRelationExists is returned when a relation (in either direction)
// already links the two issues. The schema enforces this with a unique
// constraint and an inverse-duplicate trigger.
var ErrRelationExists = errors.New("relation already exists")

type relationService struct {
	s *Store
}

// List retrieves relations touching an issue from either side, oldest
// first.
func (svc *relationService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Relation, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, related_issue_id, relation_type, created_at
		 FROM issue_relations
		 WHERE issue_id = ? OR related_issue_id = ?
		 ORDER BY created_at ASC, id ASC`, issueID, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	relations := make([]model.Relation, 0)
	for rows.Next() {
		r, err := scanRelationFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relation row: %w", err)
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

// Create links two issues. Both issues must exist in the scope, and at
// most one relation may link a given pair regardless of direction.
func (svc *relationService) Create(ctx context.Context, scope service.Scope, rel model.Relation) (model.Relation, error) {
	if rel.IssueID == rel.RelatedIssueID {
		return model.Relation{}, errors.New("cannot relate an issue to itself")
	}
	if err := model.ValidateRelationType(rel.Type); err != nil {
		return model.Relation{}, err
	}

	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Relation{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, rel.IssueID); err != nil {
		return model.Relation{}, err
	}
	if err := requireIssue(tx, scope, rel.RelatedIssueID); err != nil {
		return model.Relation{}, err
	}

	rel.ID = model.NewID()
	if _, err := tx.Exec(
		`INSERT INTO issue_relations (id, issue_id, related_issue_id, relation_type, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rel.ID, rel.IssueID, rel.RelatedIssueID, string(rel.Type), nowStamp(),
	); err != nil {
		if isRelationConflict(err) {
			return model.Relation{}, ErrRelationExists
		}
		return model.Relation{}, fmt.Errorf("inserting relation: %w", err)
	}

	if err := recordActivity(tx, rel.IssueID, "relation_added", "", string(rel.Type)+" "+rel.RelatedIssueID, svc.s.actor); err != nil {
		return model.Relation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Relation{}, fmt.Errorf("committing transaction: %w", err)
	}
	return svc.get(ctx, rel.ID)
}

// Remove deletes a relation by id.
func (svc *relationService) Remove(ctx context.Context, scope service.Scope, id string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM issue_relations WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting relation: %w", err)
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

func (svc *relationService) get(ctx context.Context, id string) (model.Relation, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, related_issue_id, relation_type, created_at
		 FROM issue_relations WHERE id = ?`, id,
	)
	r, err := scanRelationFrom(row)
	if err != nil {
		return model.Relation{}, fmt.Errorf("scanning relation: %w", err)
	}
	return r, nil
}

// isRelationConflict detects the unique constraint or the
// inverse-duplicate trigger firing. The sqlite driver surfaces both as
// plain errors, so this matches on message.
func isRelationConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: issue_relations") ||
		strings.Contains(msg, "inverse duplicate relation")
}

func scanRelationFrom(s scanner) (model.Relation, error) {
	var r model.Relation
	var relType, createdAt string
	if err := s.Scan(&r.ID, &r.IssueID, &r.RelatedIssueID, &relType, &createdAt); err != nil {
		return model.Relation{}, err
	}
	r.Type = model.RelationType(relType)
	var err error
	if r.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Relation{}, err
	}
	return r, nil
}
