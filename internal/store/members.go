package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// MemberQuery selects and orders members for display. The zero value
// returns everyone in role order.
type MemberQuery struct {
	Roles  []model.Role // keep only these roles; empty keeps all
	Search string       // case-insensitive match on name or email
	ByName bool         // sort alphabetically instead of by role rank

	// CurrentMemberID floats the signed-in member to the front of the
	// result regardless of sort order.
	CurrentMemberID string
}

// MemberStore holds the members of a project. Role changes and removals
// are optimistic; Query is the derived accessor views call on every
// render, so it never mutates state and always returns a fresh slice.
type MemberStore struct {
	svc service.MemberService
	c   *Container[model.Member]
}

// NewMemberStore returns an empty member store backed by svc.
func NewMemberStore(svc service.MemberService) *MemberStore {
	return &MemberStore{svc: svc, c: NewContainer[model.Member]()}
}

// Fetch loads the project's members from the service.
func (s *MemberStore) Fetch(ctx context.Context, scope service.Scope) error {
	recs, err := s.svc.List(ctx, scope)
	if err != nil {
		return fmt.Errorf("fetching members: %w", err)
	}
	s.c.UpsertMany(scope.Project, recs)
	return nil
}

// Get returns a member by id.
func (s *MemberStore) Get(id string) (model.Member, bool) {
	return s.c.Get(id)
}

// All returns the project's members in insertion order. The second return
// value is false if members have never been fetched.
func (s *MemberStore) All(projectID string) ([]model.Member, bool) {
	return s.c.ListFor(projectID)
}

// Query returns the project's members filtered and ordered per q. Ties
// keep insertion order. The second return value is false if members have
// never been fetched.
func (s *MemberStore) Query(projectID string, q MemberQuery) ([]model.Member, bool) {
	recs, ok := s.c.ListFor(projectID)
	if !ok {
		return nil, false
	}

	out := make([]model.Member, 0, len(recs))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, m := range recs {
		if len(q.Roles) > 0 && !roleIn(m.Role, q.Roles) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(m.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(m.Email), needle) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.CurrentMemberID != "" && (a.ID == q.CurrentMemberID) != (b.ID == q.CurrentMemberID) {
			return a.ID == q.CurrentMemberID
		}
		if q.ByName {
			return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
		}
		return a.Role.Rank() < b.Role.Rank()
	})
	return out, true
}

func roleIn(r model.Role, roles []model.Role) bool {
	for _, v := range roles {
		if r == v {
			return true
		}
	}
	return false
}

// SetRole changes a member's role optimistically and persists it. An
// unknown role is a validation error before any state change; a member
// that is not locally present is a precondition failure (ErrUnknownRecord).
// On service failure the snapshotted member is restored.
func (s *MemberStore) SetRole(ctx context.Context, scope service.Scope, id string, role model.Role) (model.Member, error) {
	if err := model.ValidateRole(role); err != nil {
		return model.Member{}, err
	}
	snapshot, ok := s.c.Get(id)
	if !ok {
		return model.Member{}, fmt.Errorf("member %s: %w", id, ErrUnknownRecord)
	}

	optimistic := snapshot
	optimistic.Role = role
	s.c.Put(optimistic)

	var updated model.Member
	err := commit(ctx,
		func(ctx context.Context) error {
			m, err := s.svc.UpdateRole(ctx, scope, id, role)
			if err != nil {
				return fmt.Errorf("changing role: %w", err)
			}
			updated = m
			return nil
		},
		func() { s.c.Put(snapshot) },
	)
	if err != nil {
		return model.Member{}, err
	}

	s.c.Put(updated)
	return updated, nil
}

// Remove removes a member from the project optimistically and persists
// the removal. A member that is not locally present is a precondition
// failure (ErrUnknownRecord). On service failure the member is restored at
// their previous position.
func (s *MemberStore) Remove(ctx context.Context, scope service.Scope, id string) error {
	removed, pos, ok := s.c.Remove(scope.Project, id)
	if !ok {
		return fmt.Errorf("member %s: %w", id, ErrUnknownRecord)
	}

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, id); err != nil {
				return fmt.Errorf("removing member: %w", err)
			}
			return nil
		},
		func() { s.c.InsertAt(scope.Project, removed, pos) },
	)
}
