package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

type memberService struct {
	s *Store
}

// List retrieves the project's members ordered by join date.
func (svc *memberService) List(ctx context.Context, scope service.Scope) ([]model.Member, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, display_name, email, role, joined_at
		 FROM members WHERE project_id = ? ORDER BY joined_at ASC, id ASC`, scope.Project,
	)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	members := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMemberFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Add inserts a member into the project. Not part of the client service
// surface; used by workspace setup and tests.
func (svc *memberService) Add(ctx context.Context, scope service.Scope, m model.Member) (model.Member, error) {
	if err := model.ValidateRole(m.Role); err != nil {
		return model.Member{}, err
	}
	if m.ID == "" {
		m.ID = model.NewID()
	}
	if _, err := svc.s.db.ExecContext(ctx,
		`INSERT INTO members (id, project_id, display_name, email, role, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, scope.Project, m.DisplayName, nullString(m.Email), string(m.Role), nowStamp(),
	); err != nil {
		return model.Member{}, fmt.Errorf("inserting member: %w", err)
	}
	return svc.get(ctx, scope, m.ID)
}

// AddMember inserts a member into the project. Membership is granted by
// the hosted control plane normally; local workspaces seed their single
// member through this during init.
func (s *Store) AddMember(ctx context.Context, scope service.Scope, m model.Member) (model.Member, error) {
	return (&memberService{s}).Add(ctx, scope, m)
}

// UpdateRole changes a member's role and returns the stored row.
func (svc *memberService) UpdateRole(ctx context.Context, scope service.Scope, id string, role model.Role) (model.Member, error) {
	if err := model.ValidateRole(role); err != nil {
		return model.Member{}, err
	}
	res, err := svc.s.db.ExecContext(ctx,
		`UPDATE members SET role = ? WHERE id = ? AND project_id = ?`,
		string(role), id, scope.Project,
	)
	if err != nil {
		return model.Member{}, fmt.Errorf("updating member role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Member{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.Member{}, service.ErrNotFound
	}
	return svc.get(ctx, scope, id)
}

// Remove drops a member from the project. Their past comments and
// activity entries keep the dangling id.
func (svc *memberService) Remove(ctx context.Context, scope service.Scope, id string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM members WHERE id = ? AND project_id = ?`, id, scope.Project,
	)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
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

func (svc *memberService) get(ctx context.Context, scope service.Scope, id string) (model.Member, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, role, joined_at
		 FROM members WHERE id = ? AND project_id = ?`, id, scope.Project,
	)
	m, err := scanMemberFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, service.ErrNotFound
		}
		return model.Member{}, fmt.Errorf("scanning member: %w", err)
	}
	return m, nil
}

func scanMemberFrom(s scanner) (model.Member, error) {
	var m model.Member
	var email sql.NullString
	var role, joinedAt string
	if err := s.Scan(&m.ID, &m.DisplayName, &email, &role, &joinedAt); err != nil {
		return model.Member{}, err
	}
	m.Email = email.String
	m.Role = model.Role(role)
	var err error
	if m.JoinedAt, err = parseStamp(joinedAt); err != nil {
		return model.Member{}, err
	}
	return m, nil
}
