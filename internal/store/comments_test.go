package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridline-app/gridline/internal/model"
)

// counterRecorder collects OnCountChange callbacks; deltas may arrive from
// a mutation running on another goroutine.
type counterRecorder struct {
	mu     sync.Mutex
	deltas map[string]int
}

func newCounterRecorder() *counterRecorder {
	return &counterRecorder{deltas: make(map[string]int)}
}

func (r *counterRecorder) record(issueID string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas[issueID] += delta
}

func (r *counterRecorder) total(issueID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deltas[issueID]
}

func commentBodies(t *testing.T, s *CommentStore, issueID string) []string {
	t.Helper()
	recs, ok := s.ByIssue(issueID)
	if !ok {
		t.Fatalf("issue %s comments not loaded", issueID)
	}
	out := make([]string, len(recs))
	for i, c := range recs {
		out[i] = c.Body
	}
	return out
}

func TestCommentCreateReconcilesTempID(t *testing.T) {
	svc := &fakeCommentService{ids: idSeq{prefix: "com"}}
	s := NewCommentStore(svc)
	s.c.MarkLoaded("iss_1")

	created, err := s.Create(context.Background(), testScope, "iss_1", "hello", "mem_1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if model.IsTempID(created.ID) {
		t.Fatalf("expected server id, got %s", created.ID)
	}

	recs, _ := s.ByIssue("iss_1")
	if len(recs) != 1 || recs[0].ID != created.ID {
		t.Fatalf("expected settled record in list, got %+v", recs)
	}
	for _, c := range recs {
		if model.IsTempID(c.ID) {
			t.Fatalf("temporary id %s survived reconciliation", c.ID)
		}
	}
}

func TestCommentCreateRollsBackOnFailure(t *testing.T) {
	svc := &fakeCommentService{createErr: errBoom}
	s := NewCommentStore(svc)
	rec := newCounterRecorder()
	s.OnCountChange(rec.record)
	s.c.MarkLoaded("iss_1")

	if _, err := s.Create(context.Background(), testScope, "iss_1", "hello", "mem_1"); !errors.Is(err, errBoom) {
		t.Fatalf("Create error = %v, want errBoom", err)
	}

	recs, ok := s.ByIssue("iss_1")
	if !ok {
		t.Fatal("expected issue to remain loaded")
	}
	if len(recs) != 0 {
		t.Fatalf("expected optimistic record removed, got %+v", recs)
	}
	if got := rec.total("iss_1"); got != 0 {
		t.Fatalf("net counter delta = %d, want 0", got)
	}
}

func TestCommentUpdateRestoresExactSnapshot(t *testing.T) {
	svc := &fakeCommentService{updateErr: errBoom}
	s := NewCommentStore(svc)
	original := model.Comment{ID: "com_1", IssueID: "iss_1", Body: "original", AuthorID: "mem_1"}
	s.c.UpsertMany("iss_1", []model.Comment{original})

	if _, err := s.Update(context.Background(), testScope, "iss_1", "com_1", "edited"); !errors.Is(err, errBoom) {
		t.Fatalf("Update error = %v, want errBoom", err)
	}

	got, _ := s.Get("com_1")
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("rollback mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentUpdateUnknownRecord(t *testing.T) {
	s := NewCommentStore(&fakeCommentService{})
	_, err := s.Update(context.Background(), testScope, "iss_1", "com_missing", "edited")
	if !errors.Is(err, ErrUnknownRecord) {
		t.Fatalf("error = %v, want ErrUnknownRecord", err)
	}
}

func TestCommentRemoveRestoresPositionOnFailure(t *testing.T) {
	svc := &fakeCommentService{removeErr: errBoom}
	s := NewCommentStore(svc)
	rec := newCounterRecorder()
	s.OnCountChange(rec.record)
	s.c.UpsertMany("iss_1", []model.Comment{
		{ID: "com_1", IssueID: "iss_1", Body: "one"},
		{ID: "com_2", IssueID: "iss_1", Body: "two"},
		{ID: "com_3", IssueID: "iss_1", Body: "three"},
	})

	if err := s.Remove(context.Background(), testScope, "iss_1", "com_2"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}

	want := []string{"one", "two", "three"}
	if diff := cmp.Diff(want, commentBodies(t, s, "iss_1")); diff != "" {
		t.Fatalf("order mismatch after rollback (-want +got):\n%s", diff)
	}
	if got := rec.total("iss_1"); got != 0 {
		t.Fatalf("net counter delta = %d, want 0", got)
	}
}

// A failing removal must not disturb a comment that was created while the
// removal was in flight.
func TestCommentRollbackDoesNotClobberConcurrentCreate(t *testing.T) {
	g := newGate()
	svc := &fakeCommentService{
		ids:        idSeq{prefix: "com"},
		removeErr:  errBoom,
		removeGate: g,
	}
	s := NewCommentStore(svc)
	s.c.UpsertMany("iss_1", []model.Comment{
		{ID: "com_1", IssueID: "iss_1", Body: "doomed"},
		{ID: "com_2", IssueID: "iss_1", Body: "stays"},
	})

	done := make(chan error, 1)
	go func() {
		done <- s.Remove(context.Background(), testScope, "iss_1", "com_1")
	}()
	<-g.entered

	// The removal is suspended at the service call; a create settles in
	// the meantime.
	if _, err := s.Create(context.Background(), testScope, "iss_1", "meanwhile", "mem_1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	g.open()
	if err := <-done; !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}

	want := []string{"doomed", "stays", "meanwhile"}
	if diff := cmp.Diff(want, commentBodies(t, s, "iss_1")); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentCreateValidatesBeforeAnyStateChange(t *testing.T) {
	svc := &fakeCommentService{}
	s := NewCommentStore(svc)
	s.c.MarkLoaded("iss_1")

	if _, err := s.Create(context.Background(), testScope, "iss_1", "   ", "mem_1"); err == nil {
		t.Fatal("expected validation error for blank body")
	}
	recs, _ := s.ByIssue("iss_1")
	if len(recs) != 0 {
		t.Fatalf("expected no state change, got %+v", recs)
	}
}
