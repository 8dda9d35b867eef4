package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridline-app/gridline/internal/model"
)

func comment(id, body string) model.Comment {
	return model.Comment{ID: id, IssueID: "iss_1", Body: body}
}

func ids(t *testing.T, c *Container[model.Comment], parentID string) []string {
	t.Helper()
	got, ok := c.IDsFor(parentID)
	if !ok {
		t.Fatalf("parent %s not loaded", parentID)
	}
	return got
}

func TestContainerNeverLoadedVsLoadedEmpty(t *testing.T) {
	c := NewContainer[model.Comment]()

	if _, ok := c.IDsFor("iss_1"); ok {
		t.Fatal("expected unloaded parent to report ok=false")
	}
	if _, ok := c.ListFor("iss_1"); ok {
		t.Fatal("expected unloaded parent to report ok=false")
	}

	c.MarkLoaded("iss_1")
	got, ok := c.IDsFor("iss_1")
	if !ok {
		t.Fatal("expected loaded parent to report ok=true")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty id list, got %v", got)
	}

	c.UpsertMany("iss_2", nil)
	if _, ok := c.IDsFor("iss_2"); !ok {
		t.Fatal("expected empty upsert to mark parent loaded")
	}
}

func TestContainerUpsertManyKeepsFirstSeenOrder(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one"), comment("c2", "two")})
	c.UpsertMany("iss_1", []model.Comment{comment("c2", "two updated"), comment("c3", "three")})

	want := []string{"c1", "c2", "c3"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("id order mismatch (-want +got):\n%s", diff)
	}

	rec, ok := c.Get("c2")
	if !ok || rec.Body != "two updated" {
		t.Fatalf("expected re-upserted record to be refreshed, got %+v", rec)
	}
}

func TestContainerReplaceAllEvictsMissing(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one"), comment("c2", "two")})

	c.ReplaceAll("iss_1", []model.Comment{comment("c3", "three"), comment("c1", "one")})

	want := []string{"c3", "c1"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("id order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Get("c2"); ok {
		t.Fatal("expected evicted record to be deleted")
	}
}

func TestContainerInsertAtClampsAndDeduplicates(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one"), comment("c2", "two")})

	c.InsertAt("iss_1", comment("c3", "three"), 1)
	c.InsertAt("iss_1", comment("c4", "four"), 99)
	c.InsertAt("iss_1", comment("c5", "five"), -1)
	c.InsertAt("iss_1", comment("c3", "three again"), 0) // already indexed

	want := []string{"c1", "c3", "c2", "c4", "c5"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("id order mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerReplaceIDPreservesPosition(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one"), comment("tmp_x", "pending"), comment("c3", "three")})

	c.ReplaceID("iss_1", "tmp_x", comment("c2", "settled"))

	want := []string{"c1", "c2", "c3"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("id order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Get("tmp_x"); ok {
		t.Fatal("expected temporary record to be deleted")
	}
	if rec, ok := c.Get("c2"); !ok || rec.Body != "settled" {
		t.Fatalf("expected settled record, got %+v", rec)
	}
}

func TestContainerRemoveReturnsPosition(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one"), comment("c2", "two"), comment("c3", "three")})

	rec, pos, ok := c.Remove("iss_1", "c2")
	if !ok || pos != 1 || rec.ID != "c2" {
		t.Fatalf("Remove = (%+v, %d, %v), want c2 at 1", rec, pos, ok)
	}

	c.InsertAt("iss_1", rec, pos)
	want := []string{"c1", "c2", "c3"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}

	if _, _, ok := c.Remove("iss_1", "nope"); ok {
		t.Fatal("expected Remove of unknown id to report ok=false")
	}
}

func TestContainerMoveIndex(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", ""), comment("c2", ""), comment("c3", "")})

	if old := c.MoveIndex("iss_1", "c3", 0); old != 2 {
		t.Fatalf("MoveIndex returned %d, want 2", old)
	}
	want := []string{"c3", "c1", "c2"}
	if diff := cmp.Diff(want, ids(t, c, "iss_1")); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	if old := c.MoveIndex("iss_1", "missing", 0); old != -1 {
		t.Fatalf("MoveIndex of unknown id returned %d, want -1", old)
	}
}

func TestContainerRemoveIndexEntryLeavesRecord(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one")})
	c.Insert("iss_2", comment("c1", "one"))

	if pos := c.RemoveIndexEntry("iss_1", "c1"); pos != 0 {
		t.Fatalf("RemoveIndexEntry returned %d, want 0", pos)
	}
	if _, ok := c.Get("c1"); !ok {
		t.Fatal("expected record to survive index removal")
	}
	if got := ids(t, c, "iss_2"); len(got) != 1 {
		t.Fatalf("expected other index untouched, got %v", got)
	}
}

func TestContainerUpdate(t *testing.T) {
	c := NewContainer[model.Comment]()
	c.UpsertMany("iss_1", []model.Comment{comment("c1", "one")})

	if ok := c.Update("c1", func(m model.Comment) model.Comment {
		m.Body = "edited"
		return m
	}); !ok {
		t.Fatal("expected update of known record to succeed")
	}
	if rec, _ := c.Get("c1"); rec.Body != "edited" {
		t.Fatalf("body = %q, want edited", rec.Body)
	}

	if ok := c.Update("missing", func(m model.Comment) model.Comment { return m }); ok {
		t.Fatal("expected update of unknown record to report false")
	}
}
