package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gridline-app/gridline/internal/model"
)

func TestReactionToggleLifecycle(t *testing.T) {
	svc := &fakeReactionService{ids: idSeq{prefix: "rea"}}
	s := NewReactionStore(svc)
	s.c.MarkLoaded("iss_1")
	ctx := context.Background()

	created, err := s.Create(ctx, testScope, "iss_1", "👍", "mem_1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if model.IsTempID(created.ID) {
		t.Fatalf("expected server id, got %s", created.ID)
	}

	// Reacting again with the same emoji returns the existing reaction.
	again, err := s.Create(ctx, testScope, "iss_1", "👍", "mem_1")
	if err != nil {
		t.Fatalf("repeat Create: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("repeat Create returned %s, want existing %s", again.ID, created.ID)
	}
	grouped, _ := s.ByIssue("iss_1")
	if len(grouped["👍"]) != 1 {
		t.Fatalf("expected one 👍 reaction, got %v", grouped["👍"])
	}

	if err := s.Remove(ctx, testScope, "iss_1", "👍", "mem_1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := s.Find("iss_1", "👍", "mem_1"); ok {
		t.Fatal("expected reaction gone after remove")
	}

	// Removing again is a silent no-op.
	if err := s.Remove(ctx, testScope, "iss_1", "👍", "mem_1"); err != nil {
		t.Fatalf("repeat Remove: %v", err)
	}
}

func TestReactionCreateRollsBackOnFailure(t *testing.T) {
	svc := &fakeReactionService{createErr: errBoom}
	s := NewReactionStore(svc)
	s.c.MarkLoaded("iss_1")

	if _, err := s.Create(context.Background(), testScope, "iss_1", "🎉", "mem_1"); !errors.Is(err, errBoom) {
		t.Fatalf("Create error = %v, want errBoom", err)
	}
	grouped, ok := s.ByIssue("iss_1")
	if !ok {
		t.Fatal("expected issue to remain loaded")
	}
	if len(grouped) != 0 {
		t.Fatalf("expected optimistic reaction removed, got %v", grouped)
	}
}

func TestReactionRemoveRollsBackOnFailure(t *testing.T) {
	svc := &fakeReactionService{removeErr: errBoom}
	s := NewReactionStore(svc)
	s.c.UpsertMany("iss_1", []model.Reaction{
		{ID: "rea_1", IssueID: "iss_1", Emoji: "👍", MemberID: "mem_1"},
		{ID: "rea_2", IssueID: "iss_1", Emoji: "👍", MemberID: "mem_2"},
	})

	if err := s.Remove(context.Background(), testScope, "iss_1", "👍", "mem_1"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}

	grouped, _ := s.ByIssue("iss_1")
	if got := grouped["👍"]; len(got) != 2 || got[0] != "rea_1" {
		t.Fatalf("expected rollback to restore rea_1 at its position, got %v", got)
	}
}

func TestReactionCreateValidatesEmoji(t *testing.T) {
	s := NewReactionStore(&fakeReactionService{})
	s.c.MarkLoaded("iss_1")

	if _, err := s.Create(context.Background(), testScope, "iss_1", "  ", "mem_1"); err == nil {
		t.Fatal("expected validation error for blank emoji")
	}
	grouped, _ := s.ByIssue("iss_1")
	if len(grouped) != 0 {
		t.Fatalf("expected no state change, got %v", grouped)
	}
}
