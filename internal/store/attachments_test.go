package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

func attachmentRec(id, name string) model.Attachment {
	return model.Attachment{ID: id, IssueID: "iss_1", FileName: name}
}

func uploadReq(name string, progress func(int)) service.UploadRequest {
	return service.UploadRequest{
		FileName: name,
		Size:     4,
		Content:  strings.NewReader("data"),
		Progress: progress,
	}
}

func TestAttachmentUploadStatusLifecycle(t *testing.T) {
	g := newGate()
	svc := &fakeAttachmentService{
		ids:           idSeq{prefix: "att"},
		uploadGate:    g,
		progressSteps: []int{25, 75},
	}
	s := NewAttachmentStore(svc)
	rec := newCounterRecorder()
	s.OnCountChange(rec.record)
	s.c.MarkLoaded("iss_1")

	done := make(chan error, 1)
	go func() {
		_, err := s.Create(context.Background(), testScope, "iss_1", uploadReq("report.pdf", nil))
		done <- err
	}()
	<-g.entered

	// The upload is in flight: a status record is visible with the last
	// reported progress, but no attachment record exists yet.
	ups := s.UploadsByIssue("iss_1")
	if len(ups) != 1 {
		t.Fatalf("expected one in-flight upload, got %+v", ups)
	}
	if ups[0].FileName != "report.pdf" || ups[0].Progress != 75 {
		t.Fatalf("unexpected upload status %+v", ups[0])
	}
	if recs, _ := s.ByIssue("iss_1"); len(recs) != 0 {
		t.Fatalf("expected no attachment record before settle, got %+v", recs)
	}

	g.open()
	if err := <-done; err != nil {
		t.Fatalf("Create: %v", err)
	}

	if ups := s.UploadsByIssue("iss_1"); len(ups) != 0 {
		t.Fatalf("expected upload status cleared after settle, got %+v", ups)
	}
	recs, _ := s.ByIssue("iss_1")
	if len(recs) != 1 || recs[0].FileName != "report.pdf" {
		t.Fatalf("expected settled attachment, got %+v", recs)
	}
	if got := rec.total("iss_1"); got != 1 {
		t.Fatalf("counter delta = %d, want 1", got)
	}
}

func TestAttachmentUploadFailureClearsStatus(t *testing.T) {
	svc := &fakeAttachmentService{uploadErr: errBoom}
	s := NewAttachmentStore(svc)
	rec := newCounterRecorder()
	s.OnCountChange(rec.record)
	s.c.MarkLoaded("iss_1")

	if _, err := s.Create(context.Background(), testScope, "iss_1", uploadReq("broken.bin", nil)); !errors.Is(err, errBoom) {
		t.Fatalf("Create error = %v, want errBoom", err)
	}

	if ups := s.UploadsByIssue("iss_1"); len(ups) != 0 {
		t.Fatalf("expected upload status cleared after failure, got %+v", ups)
	}
	if recs, _ := s.ByIssue("iss_1"); len(recs) != 0 {
		t.Fatalf("expected no attachment record, got %+v", recs)
	}
	if got := rec.total("iss_1"); got != 0 {
		t.Fatalf("counter delta = %d, want 0", got)
	}
}

func TestAttachmentUploadForwardsProgress(t *testing.T) {
	svc := &fakeAttachmentService{
		ids:           idSeq{prefix: "att"},
		progressSteps: []int{10, 50, 100},
	}
	s := NewAttachmentStore(svc)
	s.c.MarkLoaded("iss_1")

	var seen []int
	_, err := s.Create(context.Background(), testScope, "iss_1", uploadReq("file.txt", func(p int) {
		seen = append(seen, p)
	}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(seen) != 3 || seen[2] != 100 {
		t.Fatalf("caller progress = %v, want 10,50,100", seen)
	}
}

func TestAttachmentRemoveRestoresOnFailure(t *testing.T) {
	svc := &fakeAttachmentService{removeErr: errBoom}
	s := NewAttachmentStore(svc)
	rec := newCounterRecorder()
	s.OnCountChange(rec.record)
	s.c.UpsertMany("iss_1", nil)
	s.c.Insert("iss_1", attachmentRec("att_1", "a.txt"))
	s.c.Insert("iss_1", attachmentRec("att_2", "b.txt"))

	if err := s.Remove(context.Background(), testScope, "iss_1", "att_1"); !errors.Is(err, errBoom) {
		t.Fatalf("Remove error = %v, want errBoom", err)
	}

	recs, _ := s.ByIssue("iss_1")
	if len(recs) != 2 || recs[0].ID != "att_1" {
		t.Fatalf("expected att_1 restored first, got %+v", recs)
	}
	if got := rec.total("iss_1"); got != 0 {
		t.Fatalf("net counter delta = %d, want 0", got)
	}
}
