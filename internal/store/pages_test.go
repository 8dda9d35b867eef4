package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridline-app/gridline/internal/model"
)

func TestPageCreateReconcilesTempID(t *testing.T) {
	svc := &fakePageService{ids: idSeq{prefix: "pag"}}
	s := NewPageStore(svc)
	s.c.MarkLoaded(testScope.Project)

	created, err := s.Create(context.Background(), testScope, model.Page{Title: "Roadmap"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if model.IsTempID(created.ID) {
		t.Fatalf("expected server id, got %s", created.ID)
	}
	if created.Access != model.PagePublic {
		t.Fatalf("access = %s, want default public", created.Access)
	}
	recs, _ := s.ByProject(testScope.Project)
	if len(recs) != 1 || recs[0].ID != created.ID {
		t.Fatalf("expected settled page in list, got %+v", recs)
	}
}

func TestPageCreateRollsBackOnFailure(t *testing.T) {
	svc := &fakePageService{createErr: errBoom}
	s := NewPageStore(svc)
	s.c.MarkLoaded(testScope.Project)

	if _, err := s.Create(context.Background(), testScope, model.Page{Title: "Doomed"}); !errors.Is(err, errBoom) {
		t.Fatalf("Create error = %v, want errBoom", err)
	}
	recs, ok := s.ByProject(testScope.Project)
	if !ok || len(recs) != 0 {
		t.Fatalf("expected optimistic page removed, got %+v", recs)
	}
}

func TestPageSetAccessRollsBackOnFailure(t *testing.T) {
	svc := &fakePageService{updateErr: errBoom}
	s := NewPageStore(svc)
	original := model.Page{ID: "pag_1", ProjectID: testScope.Project, Title: "Notes", Access: model.PagePrivate}
	s.c.UpsertMany(testScope.Project, []model.Page{original})

	if _, err := s.SetAccess(context.Background(), testScope, "pag_1", model.PagePublic); !errors.Is(err, errBoom) {
		t.Fatalf("SetAccess error = %v, want errBoom", err)
	}
	got, _ := s.Get("pag_1")
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("rollback mismatch (-want +got):\n%s", diff)
	}
}

func TestPageSetAccessValidates(t *testing.T) {
	s := NewPageStore(&fakePageService{})
	s.c.UpsertMany(testScope.Project, []model.Page{{ID: "pag_1", Access: model.PagePublic}})

	if _, err := s.SetAccess(context.Background(), testScope, "pag_1", model.PageAccess("secret")); err == nil {
		t.Fatal("expected validation error for unknown access level")
	}
	got, _ := s.Get("pag_1")
	if got.Access != model.PagePublic {
		t.Fatalf("access changed by rejected update: %s", got.Access)
	}
}

func TestPagePersistTitleRestoresBaseOnFailure(t *testing.T) {
	svc := &fakePageService{updateErr: errBoom}
	s := NewPageStore(svc)
	s.c.UpsertMany(testScope.Project, []model.Page{{ID: "pag_1", Title: "draft title"}})
	s.SetTitle("pag_1", "edited title")

	err := s.PersistTitle(context.Background(), testScope, "pag_1", "edited title", "draft title")
	if !errors.Is(err, errBoom) {
		t.Fatalf("PersistTitle error = %v, want errBoom", err)
	}
	got, _ := s.Get("pag_1")
	if got.Title != "draft title" {
		t.Fatalf("title = %q, want rollback to %q", got.Title, "draft title")
	}
}

func TestPagePersistTitleKeepsNewerEdit(t *testing.T) {
	svc := &fakePageService{ids: idSeq{prefix: "pag"}}
	s := NewPageStore(svc)
	s.c.UpsertMany(testScope.Project, []model.Page{{ID: "pag_1", Title: "v1"}})

	// While v2 is being persisted the user has already typed v3; the
	// server response for v2 must not clobber it.
	s.SetTitle("pag_1", "v3")
	if err := s.PersistTitle(context.Background(), testScope, "pag_1", "v2", "v1"); err != nil {
		t.Fatalf("PersistTitle: %v", err)
	}
	got, _ := s.Get("pag_1")
	if got.Title != "v3" {
		t.Fatalf("title = %q, want newer edit v3 preserved", got.Title)
	}
}

func TestPageRemoveRestoresOnFailure(t *testing.T) {
	svc := &fakePageService{removeErr: errBoom}
	s := NewPageStore(svc)
	s.c.UpsertMany(testScope.Project, []model.Page{
		{ID: "pag_1", Title: "one"},
		{ID: "pag_2", Title: "two"},
	})

	if err := s.Remove(context.Background(), testScope, "pag_1"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}
	recs, _ := s.ByProject(testScope.Project)
	if len(recs) != 2 || recs[0].ID != "pag_1" {
		t.Fatalf("expected pag_1 restored first, got %+v", recs)
	}
}
