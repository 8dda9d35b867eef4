package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridline-app/gridline/internal/model"
)

func seededIssueStore(svc *fakeIssueService, issues ...model.Issue) *IssueStore {
	s := NewIssueStore(svc)
	s.c.UpsertMany(testScope.Project, issues)
	return s
}

func TestIssueUpdateOptimisticThenServerWins(t *testing.T) {
	svc := &fakeIssueService{}
	s := seededIssueStore(svc, model.Issue{
		ID: "iss_1", ProjectID: testScope.Project,
		Title: "old", Status: model.StatusTodo, Priority: model.PriorityNone,
	})

	updated, err := s.Update(context.Background(), testScope, "iss_1", map[string]any{
		"status": string(model.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != model.StatusInProgress {
		t.Fatalf("status = %s, want in-progress", updated.Status)
	}
	got, _ := s.Get("iss_1")
	if got.Status != model.StatusInProgress {
		t.Fatalf("stored status = %s, want in-progress", got.Status)
	}
}

func TestIssueUpdateRollsBackOnFailure(t *testing.T) {
	svc := &fakeIssueService{updateErr: errBoom}
	original := model.Issue{
		ID: "iss_1", ProjectID: testScope.Project,
		Title: "keep me", Status: model.StatusTodo, Priority: model.PriorityHigh,
		CommentCount: 3,
	}
	s := seededIssueStore(svc, original)

	if _, err := s.Update(context.Background(), testScope, "iss_1", map[string]any{"title": "clobbered"}); !errors.Is(err, errBoom) {
		t.Fatalf("Update error = %v, want errBoom", err)
	}

	got, _ := s.Get("iss_1")
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("rollback mismatch (-want +got):\n%s", diff)
	}
}

func TestIssueUpdateValidation(t *testing.T) {
	s := seededIssueStore(&fakeIssueService{}, model.Issue{ID: "iss_1", Status: model.StatusTodo, Priority: model.PriorityNone})
	ctx := context.Background()

	if _, err := s.Update(ctx, testScope, "iss_1", nil); err == nil {
		t.Fatal("expected error for empty patch")
	}
	if _, err := s.Update(ctx, testScope, "iss_1", map[string]any{"comment_count": 9}); err == nil {
		t.Fatal("expected error for non-updatable field")
	}
	if _, err := s.Update(ctx, testScope, "iss_1", map[string]any{"status": "bogus"}); err == nil {
		t.Fatal("expected error for invalid status")
	}
	if _, err := s.Update(ctx, testScope, "missing", map[string]any{"title": "x"}); !errors.Is(err, ErrUnknownRecord) {
		t.Fatalf("error = %v, want ErrUnknownRecord", err)
	}
}

func TestIssueCountersClampAtZero(t *testing.T) {
	s := seededIssueStore(&fakeIssueService{}, model.Issue{ID: "iss_1", CommentCount: 1})

	s.AdjustCommentCount("iss_1", -1)
	s.AdjustCommentCount("iss_1", -1)
	got, _ := s.Get("iss_1")
	if got.CommentCount != 0 {
		t.Fatalf("comment count = %d, want 0", got.CommentCount)
	}

	// Adjusting an unloaded issue is a no-op, not a panic.
	s.AdjustLinkCount("missing", +1)
}

func TestIssueRemoveRollsBackParentCounter(t *testing.T) {
	svc := &fakeIssueService{removeErr: errBoom}
	parent := model.Issue{ID: "iss_p", ProjectID: testScope.Project, SubIssueCount: 1}
	child := model.Issue{ID: "iss_c", ProjectID: testScope.Project, ParentID: "iss_p"}
	s := seededIssueStore(svc, parent, child)

	if err := s.Remove(context.Background(), testScope, "iss_c"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}

	got, ok := s.Get("iss_c")
	if !ok {
		t.Fatal("expected child restored after rollback")
	}
	if got.ParentID != "iss_p" {
		t.Fatalf("restored child = %+v", got)
	}
	p, _ := s.Get("iss_p")
	if p.SubIssueCount != 1 {
		t.Fatalf("parent sub-issue count = %d, want 1", p.SubIssueCount)
	}
}

func TestIssueCreateBumpsParentCounter(t *testing.T) {
	svc := &fakeIssueService{ids: idSeq{prefix: "iss"}}
	s := seededIssueStore(svc, model.Issue{ID: "iss_p", ProjectID: testScope.Project})

	created, err := s.Create(context.Background(), testScope, model.Issue{
		Title: "child", Status: model.StatusTodo, Priority: model.PriorityNone, ParentID: "iss_p",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || model.IsTempID(created.ID) {
		t.Fatalf("expected server id, got %q", created.ID)
	}
	p, _ := s.Get("iss_p")
	if p.SubIssueCount != 1 {
		t.Fatalf("parent sub-issue count = %d, want 1", p.SubIssueCount)
	}
}
