package store

import (
	"context"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// IssueHandle binds a session to a single issue, so call sites that work
// on one issue at a time do not thread the scope, issue id, and member id
// through every call. It predates the Session/IssueDetail split and is
// kept for the command layer, which is handle-per-invocation anyway.
type IssueHandle struct {
	session *Session
	issueID string
}

// Issue returns a handle for the given issue id. The issue does not need
// to be loaded yet; operations that require it will fail with
// ErrUnknownRecord.
func (s *Session) Issue(issueID string) *IssueHandle {
	return &IssueHandle{session: s, issueID: issueID}
}

// ID returns the handle's issue id.
func (h *IssueHandle) ID() string { return h.issueID }

// Load fetches the issue record and all of its detail sections.
func (h *IssueHandle) Load(ctx context.Context) (model.Issue, error) {
	s := h.session
	issue, err := s.Issues.FetchOne(ctx, s.Scope, h.issueID)
	if err != nil {
		return model.Issue{}, err
	}
	if err := s.Detail.FetchAll(ctx, s.Scope, h.issueID, s.CurrentMemberID); err != nil {
		return model.Issue{}, err
	}
	return issue, nil
}

// Get returns the locally held issue record.
func (h *IssueHandle) Get() (model.Issue, bool) {
	return h.session.Issues.Get(h.issueID)
}

// Comment adds a comment authored by the current member.
func (h *IssueHandle) Comment(ctx context.Context, body string) (model.Comment, error) {
	s := h.session
	return s.Detail.Comments.Create(ctx, s.Scope, h.issueID, body, s.CurrentMemberID)
}

// React toggles the current member's reaction with the given emoji on.
func (h *IssueHandle) React(ctx context.Context, emoji string) (model.Reaction, error) {
	s := h.session
	return s.Detail.Reactions.Create(ctx, s.Scope, h.issueID, emoji, s.CurrentMemberID)
}

// Unreact toggles the current member's reaction with the given emoji off.
func (h *IssueHandle) Unreact(ctx context.Context, emoji string) error {
	s := h.session
	return s.Detail.Reactions.Remove(ctx, s.Scope, h.issueID, emoji, s.CurrentMemberID)
}

// AddLink attaches an external link to the issue.
func (h *IssueHandle) AddLink(ctx context.Context, title, url string) (model.Link, error) {
	s := h.session
	return s.Detail.Links.Create(ctx, s.Scope, h.issueID, title, url)
}

// Attach uploads a file to the issue.
func (h *IssueHandle) Attach(ctx context.Context, req service.UploadRequest) (model.Attachment, error) {
	s := h.session
	return s.Detail.Attachments.Create(ctx, s.Scope, h.issueID, req)
}

// Subscribe subscribes the current member to the issue's notifications.
func (h *IssueHandle) Subscribe(ctx context.Context) error {
	s := h.session
	return s.Detail.Subscriptions.Subscribe(ctx, s.Scope, h.issueID, s.CurrentMemberID)
}

// Unsubscribe removes the current member's subscription.
func (h *IssueHandle) Unsubscribe(ctx context.Context) error {
	s := h.session
	return s.Detail.Subscriptions.Unsubscribe(ctx, s.Scope, h.issueID, s.CurrentMemberID)
}

// RelateTo relates this issue to another.
func (h *IssueHandle) RelateTo(ctx context.Context, relatedID string, typ model.RelationType) (model.Relation, error) {
	s := h.session
	return s.Detail.Relations.Create(ctx, s.Scope, h.issueID, relatedID, typ)
}

// SetStatus updates the issue's status.
func (h *IssueHandle) SetStatus(ctx context.Context, status model.Status) (model.Issue, error) {
	s := h.session
	return s.Issues.Update(ctx, s.Scope, h.issueID, map[string]any{"status": string(status)})
}

// SetPriority updates the issue's priority.
func (h *IssueHandle) SetPriority(ctx context.Context, priority model.Priority) (model.Issue, error) {
	s := h.session
	return s.Issues.Update(ctx, s.Scope, h.issueID, map[string]any{"priority": string(priority)})
}
