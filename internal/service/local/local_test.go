package local

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

var testScope = service.Scope{Workspace: "acme", Project: "proj_1"}

func mustOpenStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Initialize(db); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return NewStore(db, "mem_alice")
}

func mustCreateIssue(t *testing.T, s *Store, title string) model.Issue {
	t.Helper()
	issue, err := s.Bundle().Issues.Create(context.Background(), testScope, model.Issue{
		Title:    title,
		Status:   model.StatusTodo,
		Priority: model.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("creating issue %q: %v", title, err)
	}
	return issue
}

func TestOpenSetsForeignKeys(t *testing.T) {
	s := mustOpenStore(t)

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := mustOpenStore(t)

	if err := Initialize(s.db); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	v, err := SchemaVersion(s.db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateFromVersion1(t *testing.T) {
	s := mustOpenStore(t)

	// Rewind to a version 1 database: no subscriptions table.
	if _, err := s.db.Exec(`DROP TABLE subscriptions`); err != nil {
		t.Fatalf("dropping subscriptions: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE meta SET value = '1' WHERE key = 'schema_version'`); err != nil {
		t.Fatalf("rewinding schema version: %v", err)
	}

	if err := Migrate(s.db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	v, err := SchemaVersion(s.db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema version after migrate = %d, want %d", v, currentSchemaVersion)
	}

	issue := mustCreateIssue(t, s, "Migrated")
	if _, err := s.Bundle().Subscriptions.Subscribe(context.Background(), testScope, issue.ID, "mem_alice"); err != nil {
		t.Errorf("subscribe after migrate failed: %v", err)
	}
}

func TestIssueCountersAreComputed(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	b := s.Bundle()

	issue := mustCreateIssue(t, s, "Parent")

	if _, err := b.Comments.Create(ctx, testScope, issue.ID, model.Comment{Body: "first", AuthorID: "mem_alice"}); err != nil {
		t.Fatalf("creating comment: %v", err)
	}
	if _, err := b.Links.Create(ctx, testScope, issue.ID, model.Link{URL: "https://example.com"}); err != nil {
		t.Fatalf("creating link: %v", err)
	}
	if _, err := b.Attachments.Upload(ctx, testScope, issue.ID, service.UploadRequest{
		FileName: "spec.pdf",
		Size:     4,
		Content:  bytes.NewReader([]byte("abcd")),
	}); err != nil {
		t.Fatalf("uploading attachment: %v", err)
	}
	if _, err := b.Issues.Create(ctx, testScope, model.Issue{
		Title: "Child", Status: model.StatusTodo, Priority: model.PriorityNone, ParentID: issue.ID,
	}); err != nil {
		t.Fatalf("creating child issue: %v", err)
	}

	got, err := b.Issues.Get(ctx, testScope, issue.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CommentCount != 1 || got.LinkCount != 1 || got.AttachmentCount != 1 || got.SubIssueCount != 1 {
		t.Errorf("counters = %d/%d/%d/%d, want 1/1/1/1",
			got.CommentCount, got.LinkCount, got.AttachmentCount, got.SubIssueCount)
	}
}

func TestIssueListFilters(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	issues := s.Bundle().Issues

	if _, err := issues.Create(ctx, testScope, model.Issue{
		Title: "Alpha", Status: model.StatusTodo, Priority: model.PriorityHigh, Labels: []string{"bug", "ui"},
	}); err != nil {
		t.Fatalf("creating Alpha: %v", err)
	}
	if _, err := issues.Create(ctx, testScope, model.Issue{
		Title: "Beta", Status: model.StatusDone, Priority: model.PriorityLow, Labels: []string{"bug"},
	}); err != nil {
		t.Fatalf("creating Beta: %v", err)
	}
	if _, err := issues.Create(ctx, testScope, model.Issue{
		Title: "Gamma", Status: model.StatusInProgress, Priority: model.PriorityHigh,
	}); err != nil {
		t.Fatalf("creating Gamma: %v", err)
	}

	// Done excluded by default.
	got, total, err := issues.List(ctx, testScope, service.IssueFilter{Sort: "title", SortDir: "asc"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].Title != "Alpha" || got[1].Title != "Gamma" {
		t.Errorf("default list = %d issues (total %d), want Alpha, Gamma", len(got), total)
	}

	// Label AND logic: both labels must be present.
	got, _, err = issues.List(ctx, testScope, service.IssueFilter{
		Labels: []string{"bug", "ui"}, IncludeDone: true,
	})
	if err != nil {
		t.Fatalf("label list failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Alpha" {
		t.Errorf("label filter returned %d issues, want just Alpha", len(got))
	}

	// Explicitly asking for done status auto-includes done issues.
	got, _, err = issues.List(ctx, testScope, service.IssueFilter{
		Statuses: []string{string(model.StatusDone)},
	})
	if err != nil {
		t.Fatalf("status list failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Beta" {
		t.Errorf("done filter returned %d issues, want just Beta", len(got))
	}

	// Total ignores Limit.
	got, total, err = issues.List(ctx, testScope, service.IssueFilter{
		IncludeDone: true, Sort: "title", SortDir: "asc", Limit: 1,
	})
	if err != nil {
		t.Fatalf("limited list failed: %v", err)
	}
	if len(got) != 1 || total != 3 {
		t.Errorf("limited list = %d issues (total %d), want 1 of 3", len(got), total)
	}
}

func TestIssueUpdateRecordsActivity(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	b := s.Bundle()

	issue := mustCreateIssue(t, s, "Track me")
	if _, err := b.Issues.Update(ctx, testScope, issue.ID, map[string]any{
		"status": string(model.StatusInProgress),
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	entries, err := b.Activity.List(ctx, testScope, issue.ID)
	if err != nil {
		t.Fatalf("Activity.List failed: %v", err)
	}
	fields := make(map[string]model.Activity)
	for _, e := range entries {
		fields[e.FieldChanged] = e
	}
	if _, ok := fields["created"]; !ok {
		t.Error("missing created activity entry")
	}
	change, ok := fields["status"]
	if !ok {
		t.Fatal("missing status activity entry")
	}
	if change.OldValue != string(model.StatusTodo) || change.NewValue != string(model.StatusInProgress) {
		t.Errorf("status change = %q -> %q, want todo -> in-progress", change.OldValue, change.NewValue)
	}
	if change.ActorID != "mem_alice" {
		t.Errorf("actor = %q, want mem_alice", change.ActorID)
	}
}

func TestIssueRemoveCascades(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	b := s.Bundle()

	parent := mustCreateIssue(t, s, "Parent")
	child, err := b.Issues.Create(ctx, testScope, model.Issue{
		Title: "Child", Status: model.StatusTodo, Priority: model.PriorityNone, ParentID: parent.ID,
	})
	if err != nil {
		t.Fatalf("creating child: %v", err)
	}
	if _, err := b.Comments.Create(ctx, testScope, child.ID, model.Comment{Body: "gone soon"}); err != nil {
		t.Fatalf("creating comment: %v", err)
	}

	if err := b.Issues.Remove(ctx, testScope, parent.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := b.Issues.Get(ctx, testScope, child.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("child Get error = %v, want ErrNotFound", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		t.Fatalf("counting comments: %v", err)
	}
	if n != 0 {
		t.Errorf("comments remaining after cascade = %d, want 0", n)
	}
}

func TestReactionToggleIsIdempotent(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	b := s.Bundle()
	issue := mustCreateIssue(t, s, "Reactable")

	first, err := b.Reactions.Create(ctx, testScope, issue.ID, "🎉", "mem_alice")
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := b.Reactions.Create(ctx, testScope, issue.ID, "🎉", "mem_alice")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat reaction id = %q, want existing %q", second.ID, first.ID)
	}

	if err := b.Reactions.Remove(ctx, testScope, issue.ID, "🎉", "mem_alice"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := b.Reactions.Remove(ctx, testScope, issue.ID, "🎉", "mem_alice"); err != nil {
		t.Errorf("repeat Remove = %v, want nil", err)
	}
	got, err := b.Reactions.List(ctx, testScope, issue.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("reactions after toggle off = %d, want 0", len(got))
	}
}

func TestSubscriptionToggleIsIdempotent(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	subs := s.Bundle().Subscriptions
	issue := mustCreateIssue(t, s, "Watchable")

	if _, ok, err := subs.Get(ctx, testScope, issue.ID, "mem_alice"); err != nil || ok {
		t.Fatalf("Get before subscribe = ok %v, err %v; want absent", ok, err)
	}

	first, err := subs.Subscribe(ctx, testScope, issue.ID, "mem_alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	second, err := subs.Subscribe(ctx, testScope, issue.ID, "mem_alice")
	if err != nil {
		t.Fatalf("repeat Subscribe failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat subscribe id = %q, want existing %q", second.ID, first.ID)
	}

	if err := subs.Unsubscribe(ctx, testScope, issue.ID, "mem_alice"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := subs.Unsubscribe(ctx, testScope, issue.ID, "mem_alice"); err != nil {
		t.Errorf("repeat Unsubscribe = %v, want nil", err)
	}
	if _, ok, err := subs.Get(ctx, testScope, issue.ID, "mem_alice"); err != nil || ok {
		t.Errorf("Get after unsubscribe = ok %v, err %v; want absent", ok, err)
	}
}

func TestRelationRejectsDuplicatesBothDirections(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	rels := s.Bundle().Relations

	a := mustCreateIssue(t, s, "A")
	c := mustCreateIssue(t, s, "C")

	rel, err := rels.Create(ctx, testScope, model.Relation{
		IssueID: a.ID, RelatedIssueID: c.ID, Type: model.RelationBlocks,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := rels.Create(ctx, testScope, model.Relation{
		IssueID: a.ID, RelatedIssueID: c.ID, Type: model.RelationRelatesTo,
	}); !errors.Is(err, ErrRelationExists) {
		t.Errorf("same-direction duplicate error = %v, want ErrRelationExists", err)
	}
	if _, err := rels.Create(ctx, testScope, model.Relation{
		IssueID: c.ID, RelatedIssueID: a.ID, Type: model.RelationBlockedBy,
	}); !errors.Is(err, ErrRelationExists) {
		t.Errorf("inverse duplicate error = %v, want ErrRelationExists", err)
	}
	if _, err := rels.Create(ctx, testScope, model.Relation{
		IssueID: a.ID, RelatedIssueID: a.ID, Type: model.RelationRelatesTo,
	}); err == nil {
		t.Error("self relation was accepted")
	}

	// Visible from both sides.
	for _, id := range []string{a.ID, c.ID} {
		got, err := rels.List(ctx, testScope, id)
		if err != nil {
			t.Fatalf("List(%s) failed: %v", id, err)
		}
		if len(got) != 1 || got[0].ID != rel.ID {
			t.Errorf("List(%s) = %d relations, want the one created", id, len(got))
		}
	}

	if err := rels.Remove(ctx, testScope, rel.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := rels.Create(ctx, testScope, model.Relation{
		IssueID: c.ID, RelatedIssueID: a.ID, Type: model.RelationBlocks,
	}); err != nil {
		t.Errorf("re-create after remove failed: %v", err)
	}
}

func TestMemberRoleLifecycle(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	members := &memberService{s}

	m, err := members.Add(ctx, testScope, model.Member{DisplayName: "Devon", Role: model.RoleMember})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	updated, err := members.UpdateRole(ctx, testScope, m.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if updated.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", updated.Role)
	}

	if _, err := members.UpdateRole(ctx, testScope, m.ID, model.Role("owner")); err == nil {
		t.Error("invalid role was accepted")
	}
	if _, err := members.UpdateRole(ctx, testScope, "mem_missing", model.RoleViewer); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("unknown member error = %v, want ErrNotFound", err)
	}

	if err := members.Remove(ctx, testScope, m.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, err := members.List(ctx, testScope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("members after remove = %d, want 0", len(got))
	}
}

func TestPageListHidesOthersPrivatePages(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	pages := s.Bundle().Pages

	mine, err := pages.Create(ctx, testScope, model.Page{Title: "Roadmap"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if mine.Access != model.PagePublic {
		t.Errorf("default access = %q, want public", mine.Access)
	}
	if mine.OwnerID != "mem_alice" {
		t.Errorf("owner = %q, want mem_alice", mine.OwnerID)
	}

	// A private page owned by someone else should not surface.
	if _, err := s.db.Exec(
		`INSERT INTO pages (id, project_id, title, access, owner_id, created_at, updated_at)
		 VALUES (?, ?, 'Secret', 'private', 'mem_bob', ?, ?)`,
		model.NewID(), testScope.Project, nowStamp(), nowStamp(),
	); err != nil {
		t.Fatalf("inserting foreign page: %v", err)
	}

	got, err := pages.List(ctx, testScope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Errorf("List = %d pages, want only own page", len(got))
	}

	if _, err := pages.Update(ctx, testScope, mine.ID, map[string]any{"access": "secret"}); err == nil {
		t.Error("invalid access level was accepted")
	}
	updated, err := pages.Update(ctx, testScope, mine.ID, map[string]any{"access": string(model.PagePrivate)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Access != model.PagePrivate {
		t.Errorf("access = %q, want private", updated.Access)
	}
}

func TestPageCreateRejectsEmptyTitle(t *testing.T) {
	s := mustOpenStore(t)

	if _, err := s.Bundle().Pages.Create(context.Background(), testScope, model.Page{Title: "   "}); err == nil {
		t.Error("blank title was accepted")
	}
}

func TestGanttListFollowsSortOrder(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	gantt := s.Bundle().Gantt

	a := mustCreateIssue(t, s, "First")
	c := mustCreateIssue(t, s, "Second")
	mustCreateIssue(t, s, "Third")

	blocks, err := gantt.List(ctx, testScope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	for i, want := range []float64{65536, 131072, 196608} {
		if blocks[i].SortOrder != want {
			t.Errorf("block %d sort order = %v, want %v", i, blocks[i].SortOrder, want)
		}
	}

	// Move the second block between nothing and the first: plenty of gap,
	// no rebalance.
	moved, err := gantt.Update(ctx, testScope, c.ID, map[string]any{"sort_order": float64(32768)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if moved.SortOrder != 32768 {
		t.Errorf("moved sort order = %v, want 32768", moved.SortOrder)
	}
	blocks, err = gantt.List(ctx, testScope)
	if err != nil {
		t.Fatalf("List after move failed: %v", err)
	}
	if blocks[0].ID != c.ID || blocks[1].ID != a.ID {
		t.Errorf("order after move = %s, %s; want Second then First", blocks[0].ID, blocks[1].ID)
	}
}

func TestGanttRebalancesCrowdedOrders(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	gantt := s.Bundle().Gantt

	a := mustCreateIssue(t, s, "First")
	c := mustCreateIssue(t, s, "Second")
	d := mustCreateIssue(t, s, "Third")

	// Squeeze Third right next to First; the gap drops below the midpoint
	// threshold and the whole project is rewritten at even spacing.
	if _, err := gantt.Update(ctx, testScope, d.ID, map[string]any{"sort_order": 65536 + 5e-5}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	blocks, err := gantt.List(ctx, testScope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	wantIDs := []string{a.ID, d.ID, c.ID}
	for i, want := range []float64{65536, 131072, 196608} {
		if blocks[i].ID != wantIDs[i] {
			t.Errorf("block %d = %s, want %s", i, blocks[i].ID, wantIDs[i])
		}
		if blocks[i].SortOrder != want {
			t.Errorf("block %d sort order = %v, want rebalanced %v", i, blocks[i].SortOrder, want)
		}
	}
}

func TestGanttUpdateWritesDates(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()

	issue := mustCreateIssue(t, s, "Scheduled")
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	block, err := s.Bundle().Gantt.Update(ctx, testScope, issue.ID, map[string]any{
		"start_date":  start,
		"target_date": target,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !block.StartDate.Equal(start) || !block.TargetDate.Equal(target) {
		t.Errorf("dates = %v..%v, want %v..%v", block.StartDate, block.TargetDate, start, target)
	}
	if block.Duration() != 7*24*time.Hour {
		t.Errorf("duration = %v, want one week", block.Duration())
	}
}

func TestAttachmentUploadReportsProgress(t *testing.T) {
	s := mustOpenStore(t)
	ctx := context.Background()
	atts := s.Bundle().Attachments
	issue := mustCreateIssue(t, s, "Has files")

	content := bytes.Repeat([]byte("x"), 3*uploadChunkSize/2)
	var pcts []int
	a, err := atts.Upload(ctx, testScope, issue.ID, service.UploadRequest{
		FileName:    "dump.bin",
		Size:        int64(len(content)),
		ContentType: "application/octet-stream",
		Content:     bytes.NewReader(content),
		Progress:    func(pct int) { pcts = append(pcts, pct) },
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if a.Size != int64(len(content)) {
		t.Errorf("stored size = %d, want %d", a.Size, len(content))
	}
	if len(pcts) == 0 || pcts[len(pcts)-1] != 100 {
		t.Fatalf("progress = %v, want final 100", pcts)
	}
	for _, pct := range pcts[:len(pcts)-1] {
		if pct >= 100 {
			t.Errorf("intermediate progress %d reached 100 before completion", pct)
		}
	}

	if err := atts.Remove(ctx, testScope, issue.ID, a.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := atts.Remove(ctx, testScope, issue.ID, a.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("repeat Remove = %v, want ErrNotFound", err)
	}
}

func TestCommentOnMissingIssueFails(t *testing.T) {
	s := mustOpenStore(t)

	_, err := s.Bundle().Comments.Create(context.Background(), testScope, "iss_missing", model.Comment{Body: "lost"})
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
