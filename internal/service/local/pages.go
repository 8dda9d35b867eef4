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

// validPageFields is the set of columns allowed in page Update.
var validPageFields = map[string]bool{
	"title":  true,
	"access": true,
}

type pageService struct {
	s *Store
}

// List retrieves the project's pages, most recently updated first.
// Private pages belonging to other members are filtered out.
func (svc *pageService) List(ctx context.Context, scope service.Scope) ([]model.Page, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, project_id, title, access, owner_id, created_at, updated_at
		 FROM pages
		 WHERE project_id = ? AND (access = 'public' OR owner_id = ?)
		 ORDER BY updated_at DESC, id DESC`, scope.Project, svc.s.actor,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.Page, 0)
	for rows.Next() {
		p, err := scanPageFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Create inserts a new page owned by the current actor.
func (svc *pageService) Create(ctx context.Context, scope service.Scope, page model.Page) (model.Page, error) {
	if strings.TrimSpace(page.Title) == "" {
		return model.Page{}, errors.New("page title cannot be empty")
	}
	if page.Access == "" {
		page.Access = model.PagePublic
	}
	if err := model.ValidatePageAccess(page.Access); err != nil {
		return model.Page{}, err
	}

	page.ID = model.NewID()
	now := nowStamp()
	if _, err := svc.s.db.ExecContext(ctx,
		`INSERT INTO pages (id, project_id, title, access, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		page.ID, scope.Project, page.Title, string(page.Access), nullString(svc.s.actor), now, now,
	); err != nil {
		return model.Page{}, fmt.Errorf("inserting page: %w", err)
	}
	return svc.get(ctx, scope, page.ID)
}

// Update modifies a page's title or access level.
func (svc *pageService) Update(ctx context.Context, scope service.Scope, id string, fields map[string]any) (model.Page, error) {
	if len(fields) == 0 {
		return svc.get(ctx, scope, id)
	}

	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var setClauses []string
	var args []any
	for _, field := range names {
		if !validPageFields[field] {
			return model.Page{}, fmt.Errorf("invalid update field %q", field)
		}
		if field == "access" {
			access, ok := fields[field].(string)
			if !ok {
				return model.Page{}, fmt.Errorf("access must be a string, got %T", fields[field])
			}
			if err := model.ValidatePageAccess(model.PageAccess(access)); err != nil {
				return model.Page{}, err
			}
		}
		setClauses = append(setClauses, field+" = ?")
		args = append(args, fields[field])
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, nowStamp(), id, scope.Project)

	res, err := svc.s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE pages SET %s WHERE id = ? AND project_id = ?", strings.Join(setClauses, ", ")),
		args...,
	)
	if err != nil {
		return model.Page{}, fmt.Errorf("updating page: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Page{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.Page{}, service.ErrNotFound
	}
	return svc.get(ctx, scope, id)
}

// Remove deletes a page.
func (svc *pageService) Remove(ctx context.Context, scope service.Scope, id string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM pages WHERE id = ? AND project_id = ?`, id, scope.Project,
	)
	if err != nil {
		return fmt.Errorf("deleting page: %w", err)
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

func (svc *pageService) get(ctx context.Context, scope service.Scope, id string) (model.Page, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, access, owner_id, created_at, updated_at
		 FROM pages WHERE id = ? AND project_id = ?`, id, scope.Project,
	)
	p, err := scanPageFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Page{}, service.ErrNotFound
		}
		return model.Page{}, fmt.Errorf("scanning page: %w", err)
	}
	return p, nil
}

func scanPageFrom(s scanner) (model.Page, error) {
	var p model.Page
	var ownerID sql.NullString
	var access, createdAt, updatedAt string
	if err := s.Scan(&p.ID, &p.ProjectID, &p.Title, &access, &ownerID, &createdAt, &updatedAt); err != nil {
		return model.Page{}, err
	}
	p.Access = model.PageAccess(access)
	p.OwnerID = ownerID.String
	var err error
	if p.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Page{}, err
	}
	if p.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return model.Page{}, err
	}
	return p, nil
}
