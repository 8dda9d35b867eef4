package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// PageStore holds the project's wiki pages. Page titles are edited through
// the TitleAutosave debouncer in this package, which calls PersistTitle
// with the base value to restore when the write fails.
type PageStore struct {
	svc service.PageService
	c   *Container[model.Page]
}

// NewPageStore returns an empty page store backed by svc.
func NewPageStore(svc service.PageService) *PageStore {
	return &PageStore{svc: svc, c: NewContainer[model.Page]()}
}

// Fetch loads the project's pages from the service.
func (s *PageStore) Fetch(ctx context.Context, scope service.Scope) error {
	recs, err := s.svc.List(ctx, scope)
	if err != nil {
		return fmt.Errorf("fetching pages: %w", err)
	}
	s.c.UpsertMany(scope.Project, recs)
	return nil
}

// Get returns a page by id.
func (s *PageStore) Get(id string) (model.Page, bool) {
	return s.c.Get(id)
}

// ByProject returns the project's pages in insertion order. The second
// return value is false if pages have never been fetched.
func (s *PageStore) ByProject(projectID string) ([]model.Page, bool) {
	return s.c.ListFor(projectID)
}

// SetTitle updates a page title in local state only, without persisting.
// It is the keystroke path: TitleAutosave batches these edits and persists
// the settled value with PersistTitle.
func (s *PageStore) SetTitle(id, title string) bool {
	return s.c.Update(id, func(p model.Page) model.Page {
		p.Title = title
		p.UpdatedAt = time.Now().UTC()
		return p
	})
}

// Create adds a page optimistically and persists it. An empty title or
// invalid access level is a validation error before any state change. On
// service failure the optimistic record is removed.
func (s *PageStore) Create(ctx context.Context, scope service.Scope, page model.Page) (model.Page, error) {
	if strings.TrimSpace(page.Title) == "" {
		return model.Page{}, fmt.Errorf("empty page title")
	}
	if page.Access == "" {
		page.Access = model.PagePublic
	}
	if err := model.ValidatePageAccess(page.Access); err != nil {
		return model.Page{}, err
	}

	now := time.Now().UTC()
	temp := page
	temp.ID = model.NewTempID()
	temp.ProjectID = scope.Project
	temp.CreatedAt = now
	temp.UpdatedAt = now
	s.c.Insert(scope.Project, temp)

	var created model.Page
	err := commit(ctx,
		func(ctx context.Context) error {
			p, err := s.svc.Create(ctx, scope, temp)
			if err != nil {
				return fmt.Errorf("creating page: %w", err)
			}
			created = p
			return nil
		},
		func() { s.c.Remove(scope.Project, temp.ID) },
	)
	if err != nil {
		return model.Page{}, err
	}

	s.c.ReplaceID(scope.Project, temp.ID, created)
	return created, nil
}

// SetAccess changes a page's access level optimistically and persists it.
// An unknown access level is a validation error before any state change; a
// page that is not locally present is a precondition failure
// (ErrUnknownRecord). On service failure the snapshotted page is restored.
func (s *PageStore) SetAccess(ctx context.Context, scope service.Scope, id string, access model.PageAccess) (model.Page, error) {
	if err := model.ValidatePageAccess(access); err != nil {
		return model.Page{}, err
	}
	snapshot, ok := s.c.Get(id)
	if !ok {
		return model.Page{}, fmt.Errorf("page %s: %w", id, ErrUnknownRecord)
	}

	optimistic := snapshot
	optimistic.Access = access
	optimistic.UpdatedAt = time.Now().UTC()
	s.c.Put(optimistic)

	var updated model.Page
	err := commit(ctx,
		func(ctx context.Context) error {
			p, err := s.svc.Update(ctx, scope, id, map[string]any{"access": string(access)})
			if err != nil {
				return fmt.Errorf("changing page access: %w", err)
			}
			updated = p
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.Page{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// PersistTitle writes a locally edited title to the service. The local
// record already carries the new title; base is the last persisted value,
// restored only if the write fails while the local title still matches
// what this call tried to persist. A newer unsaved edit is left alone.
func (s *PageStore) PersistTitle(ctx context.Context, scope service.Scope, id, title, base string) error {
	if _, ok := s.c.Get(id); !ok {
		return fmt.Errorf("page %s: %w", id, ErrUnknownRecord)
	}

	var updated model.Page
	err := commit(ctx,
		func(ctx context.Context) error {
			p, err := s.svc.Update(ctx, scope, id, map[string]any{"title": title})
			if err != nil {
				return fmt.Errorf("saving page title: %w", err)
			}
			updated = p
			return nil
		},
		func() {
			s.c.Update(id, func(p model.Page) model.Page {
				if p.Title == title {
					p.Title = base
				}
				return p
			})
		},
	)
	if err != nil {
		return err
	}

	// Merge server fields without clobbering a newer unsaved title.
	s.c.Update(id, func(p model.Page) model.Page {
		current := p.Title
		p = updated
		if current != title {
			p.Title = current
		}
		return p
	})
	return nil
}

// Remove deletes a page optimistically and persists the deletion. A page
// that is not locally present is a precondition failure (ErrUnknownRecord).
// On service failure the page is restored at its previous position.
func (s *PageStore) Remove(ctx context.Context, scope service.Scope, id string) error {
	removed, pos, ok := s.c.Remove(scope.Project, id)
	if !ok {
		return fmt.Errorf("page %s: %w", id, ErrUnknownRecord)
	}

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, id); err != nil {
				return fmt.Errorf("removing page: %w", err)
			}
			return nil
		},
		func() { s.c.InsertAt(scope.Project, removed, pos) },
	)
}
