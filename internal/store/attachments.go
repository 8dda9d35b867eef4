package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// AttachmentStore holds issue attachments plus the ephemeral upload-status
// records for in-flight uploads. Upload statuses are keyed by a
// client-generated temporary id, created when Create begins and removed
// when the call settles, success or failure, so a reader never sees a
// stale progress entry.
type AttachmentStore struct {
	svc           service.AttachmentService
	c             *Container[model.Attachment]
	onCountChange func(issueID string, delta int)

	upMu    sync.RWMutex
	uploads map[string]model.UploadStatus // temp id -> status
	upIndex map[string][]string           // issue id -> temp ids, start order
}

// NewAttachmentStore returns an empty attachment store backed by svc.
func NewAttachmentStore(svc service.AttachmentService) *AttachmentStore {
	return &AttachmentStore{
		svc:     svc,
		c:       NewContainer[model.Attachment](),
		uploads: make(map[string]model.UploadStatus),
		upIndex: make(map[string][]string),
	}
}

// OnCountChange registers the cross-container counter callback.
func (s *AttachmentStore) OnCountChange(fn func(issueID string, delta int)) {
	s.onCountChange = fn
}

func (s *AttachmentStore) notify(issueID string, delta int) {
	if s.onCountChange != nil {
		s.onCountChange(issueID, delta)
	}
}

// Fetch loads all attachments for an issue from the service.
func (s *AttachmentStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching attachments: %w", err)
	}
	s.c.UpsertMany(issueID, recs)
	return nil
}

// Get returns an attachment by id.
func (s *AttachmentStore) Get(id string) (model.Attachment, bool) {
	return s.c.Get(id)
}

// ByIssue returns the issue's attachments in insertion order. The second
// return value is false if the issue's attachments have never been fetched.
func (s *AttachmentStore) ByIssue(issueID string) ([]model.Attachment, bool) {
	return s.c.ListFor(issueID)
}

// UploadsByIssue returns the in-flight upload statuses for an issue in
// start order. The result is empty once all uploads have settled.
func (s *AttachmentStore) UploadsByIssue(issueID string) []model.UploadStatus {
	s.upMu.RLock()
	defer s.upMu.RUnlock()
	var out []model.UploadStatus
	for _, tempID := range s.upIndex[issueID] {
		if st, ok := s.uploads[tempID]; ok {
			out = append(out, st)
		}
	}
	return out
}

func (s *AttachmentStore) beginUpload(issueID string, req service.UploadRequest) string {
	s.upMu.Lock()
	defer s.upMu.Unlock()
	tempID := model.NewTempID()
	s.uploads[tempID] = model.UploadStatus{
		TempID:   tempID,
		IssueID:  issueID,
		FileName: req.FileName,
		Size:     req.Size,
	}
	s.upIndex[issueID] = append(s.upIndex[issueID], tempID)
	return tempID
}

func (s *AttachmentStore) setProgress(tempID string, percent int) {
	s.upMu.Lock()
	defer s.upMu.Unlock()
	st, ok := s.uploads[tempID]
	if !ok {
		return
	}
	st.Progress = percent
	s.uploads[tempID] = st
}

func (s *AttachmentStore) endUpload(issueID, tempID string) {
	s.upMu.Lock()
	defer s.upMu.Unlock()
	delete(s.uploads, tempID)
	ids := s.upIndex[issueID]
	for i, id := range ids {
		if id == tempID {
			s.upIndex[issueID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// Create uploads a file and records the resulting attachment. Unlike the
// other create operations there is no optimistic attachment record (the
// server owns the file), but a transient upload-status record is visible
// via UploadsByIssue for the duration of the call. The status is removed
// when the call settles regardless of outcome; the attachment record and
// counter change are applied only on success.
func (s *AttachmentStore) Create(ctx context.Context, scope service.Scope, issueID string, req service.UploadRequest) (model.Attachment, error) {
	if err := model.ValidateID("issue", issueID); err != nil {
		return model.Attachment{}, err
	}
	if req.FileName == "" {
		return model.Attachment{}, fmt.Errorf("empty attachment file name")
	}

	tempID := s.beginUpload(issueID, req)
	defer s.endUpload(issueID, tempID)

	callerProgress := req.Progress
	req.Progress = func(percent int) {
		s.setProgress(tempID, percent)
		if callerProgress != nil {
			callerProgress(percent)
		}
	}

	created, err := s.svc.Upload(ctx, scope, issueID, req)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("uploading attachment: %w", err)
	}

	s.c.Insert(issueID, created)
	s.notify(issueID, +1)
	return created, nil
}

// Remove deletes an attachment optimistically and persists the deletion.
// Removing an attachment that is not locally present is a precondition
// failure (ErrUnknownRecord). On service failure the record is restored at
// its previous position and the counter change is reverted.
func (s *AttachmentStore) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	removed, pos, ok := s.c.Remove(issueID, id)
	if !ok {
		return fmt.Errorf("attachment %s: %w", id, ErrUnknownRecord)
	}
	s.notify(issueID, -1)

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, issueID, id); err != nil {
				return fmt.Errorf("removing attachment: %w", err)
			}
			return nil
		},
		func() {
			s.c.InsertAt(issueID, removed, pos)
			s.notify(issueID, +1)
		},
	)
}
