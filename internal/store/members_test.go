package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridline-app/gridline/internal/model"
)

func seededMemberStore(svc *fakeMemberService) *MemberStore {
	s := NewMemberStore(svc)
	s.c.UpsertMany(testScope.Project, []model.Member{
		{ID: "mem_1", DisplayName: "Charlie", Email: "charlie@acme.test", Role: model.RoleViewer},
		{ID: "mem_2", DisplayName: "Alice", Email: "alice@acme.test", Role: model.RoleAdmin},
		{ID: "mem_3", DisplayName: "Bob", Email: "bob@acme.test", Role: model.RoleMember},
		{ID: "mem_4", DisplayName: "Dana", Email: "dana@acme.test", Role: model.RoleMember},
	})
	return s
}

func memberIDs(t *testing.T, s *MemberStore, q MemberQuery) []string {
	t.Helper()
	recs, ok := s.Query(testScope.Project, q)
	if !ok {
		t.Fatal("members not loaded")
	}
	out := make([]string, len(recs))
	for i, m := range recs {
		out[i] = m.ID
	}
	return out
}

func TestMemberQueryDefaultsToRoleOrder(t *testing.T) {
	s := seededMemberStore(&fakeMemberService{})

	// Admin first, then members in insertion order, then viewer.
	want := []string{"mem_2", "mem_3", "mem_4", "mem_1"}
	if diff := cmp.Diff(want, memberIDs(t, s, MemberQuery{})); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberQueryFiltersAndSearch(t *testing.T) {
	s := seededMemberStore(&fakeMemberService{})

	got := memberIDs(t, s, MemberQuery{Roles: []model.Role{model.RoleMember}})
	if diff := cmp.Diff([]string{"mem_3", "mem_4"}, got); diff != "" {
		t.Fatalf("role filter mismatch (-want +got):\n%s", diff)
	}

	got = memberIDs(t, s, MemberQuery{Search: "ALICE"})
	if diff := cmp.Diff([]string{"mem_2"}, got); diff != "" {
		t.Fatalf("search mismatch (-want +got):\n%s", diff)
	}

	got = memberIDs(t, s, MemberQuery{Search: "bob@"})
	if diff := cmp.Diff([]string{"mem_3"}, got); diff != "" {
		t.Fatalf("email search mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberQueryCurrentMemberFirst(t *testing.T) {
	s := seededMemberStore(&fakeMemberService{})

	got := memberIDs(t, s, MemberQuery{ByName: true, CurrentMemberID: "mem_4"})
	want := []string{"mem_4", "mem_2", "mem_3", "mem_1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberQueryDoesNotMutateStore(t *testing.T) {
	s := seededMemberStore(&fakeMemberService{})

	before := memberIDs(t, s, MemberQuery{})
	memberIDs(t, s, MemberQuery{ByName: true})
	memberIDs(t, s, MemberQuery{Roles: []model.Role{model.RoleAdmin}})
	after := memberIDs(t, s, MemberQuery{})

	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("query mutated store state (-before +after):\n%s", diff)
	}
	all, _ := s.All(testScope.Project)
	if len(all) != 4 {
		t.Fatalf("expected 4 members, got %d", len(all))
	}
}

func TestMemberSetRoleRollsBackOnFailure(t *testing.T) {
	svc := &fakeMemberService{updateRoleErr: errBoom}
	s := seededMemberStore(svc)

	if _, err := s.SetRole(context.Background(), testScope, "mem_1", model.RoleAdmin); !errors.Is(err, errBoom) {
		t.Fatalf("SetRole error = %v, want errBoom", err)
	}
	got, _ := s.Get("mem_1")
	if got.Role != model.RoleViewer {
		t.Fatalf("role = %s, want viewer after rollback", got.Role)
	}
}

func TestMemberSetRoleValidates(t *testing.T) {
	s := seededMemberStore(&fakeMemberService{})
	if _, err := s.SetRole(context.Background(), testScope, "mem_1", model.Role("owner")); err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestMemberRemoveRestoresOnFailure(t *testing.T) {
	svc := &fakeMemberService{removeErr: errBoom}
	s := seededMemberStore(svc)

	if err := s.Remove(context.Background(), testScope, "mem_3"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}
	all, _ := s.All(testScope.Project)
	if len(all) != 4 || all[2].ID != "mem_3" {
		t.Fatalf("expected mem_3 restored at position 2, got %+v", all)
	}
}
