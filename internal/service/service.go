// Package service defines the client interfaces for the remote
// project-management API. The store layer treats these as black boxes: a
// call either returns authoritative records or fails, and the stores never
// inspect transport details or retry. Implementations live elsewhere (the
// sqlite-backed local service under service/local, HTTP clients in the
// hosted deployment).
package service

import (
	"context"
	"errors"
	"io"

	"github.com/gridline-app/gridline/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Scope identifies the workspace and project a call operates on. Every
// service call is project-scoped; entity ids are only meaningful within
// their scope.
type Scope struct {
	Workspace string
	Project   string
}

// Validate returns an error if either scope component is missing.
func (s Scope) Validate() error {
	if s.Workspace == "" {
		return errors.New("missing workspace slug")
	}
	if s.Project == "" {
		return errors.New("missing project id")
	}
	return nil
}

// IssueFilter holds filtering and sorting options for Issues.List.
type IssueFilter struct {
	Statuses    []string // filter by status (multiple = OR)
	Priorities  []string // filter by priority (multiple = OR)
	Labels      []string // filter by label name (multiple = AND)
	AssigneeID  string   // filter by assignee
	ParentID    string   // filter by parent issue id
	RootsOnly   bool     // only issues with no parent
	IncludeDone bool     // include done status (default: exclude)
	Sort        string   // field name
	SortDir     string   // "asc" or "desc"
	Limit       int      // max results
	Offset      int      // for pagination
}

// IssueService is the remote API for issues. Update takes a partial field
// map; only the keys present are modified, and the returned record is the
// server's authoritative post-update state.
type IssueService interface {
	List(ctx context.Context, scope Scope, f IssueFilter) ([]model.Issue, int, error)
	Get(ctx context.Context, scope Scope, id string) (model.Issue, error)
	Create(ctx context.Context, scope Scope, issue model.Issue) (model.Issue, error)
	Update(ctx context.Context, scope Scope, id string, fields map[string]any) (model.Issue, error)
	Remove(ctx context.Context, scope Scope, id string) error
}

// ReactionService is the remote API for issue reactions.
type ReactionService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Reaction, error)
	Create(ctx context.Context, scope Scope, issueID, emoji, memberID string) (model.Reaction, error)
	Remove(ctx context.Context, scope Scope, issueID, emoji, memberID string) error
}

// CommentService is the remote API for issue comments.
type CommentService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Comment, error)
	Create(ctx context.Context, scope Scope, issueID string, comment model.Comment) (model.Comment, error)
	Update(ctx context.Context, scope Scope, issueID, id, body string) (model.Comment, error)
	Remove(ctx context.Context, scope Scope, issueID, id string) error
}

// LinkService is the remote API for issue links.
type LinkService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Link, error)
	Create(ctx context.Context, scope Scope, issueID string, link model.Link) (model.Link, error)
	Update(ctx context.Context, scope Scope, issueID, id string, fields map[string]any) (model.Link, error)
	Remove(ctx context.Context, scope Scope, issueID, id string) error
}

// UploadRequest carries the metadata and content for an attachment upload.
// Progress, when non-nil, is invoked with values in [0, 100] as the upload
// advances; implementations must call it from the uploading goroutine only.
type UploadRequest struct {
	FileName    string
	Size        int64
	ContentType string
	Content     io.Reader
	Progress    func(percent int)
}

// AttachmentService is the remote API for issue attachments.
type AttachmentService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Attachment, error)
	Upload(ctx context.Context, scope Scope, issueID string, req UploadRequest) (model.Attachment, error)
	Remove(ctx context.Context, scope Scope, issueID, id string) error
}

// SubscriptionService is the remote API for issue notification subscriptions.
type SubscriptionService interface {
	Get(ctx context.Context, scope Scope, issueID, memberID string) (model.Subscription, bool, error)
	Subscribe(ctx context.Context, scope Scope, issueID, memberID string) (model.Subscription, error)
	Unsubscribe(ctx context.Context, scope Scope, issueID, memberID string) error
}

// RelationService is the remote API for issue-to-issue relations.
type RelationService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Relation, error)
	Create(ctx context.Context, scope Scope, rel model.Relation) (model.Relation, error)
	Remove(ctx context.Context, scope Scope, id string) error
}

// MemberService is the remote API for project membership.
type MemberService interface {
	List(ctx context.Context, scope Scope) ([]model.Member, error)
	UpdateRole(ctx context.Context, scope Scope, id string, role model.Role) (model.Member, error)
	Remove(ctx context.Context, scope Scope, id string) error
}

// PageService is the remote API for project pages.
type PageService interface {
	List(ctx context.Context, scope Scope) ([]model.Page, error)
	Create(ctx context.Context, scope Scope, page model.Page) (model.Page, error)
	Update(ctx context.Context, scope Scope, id string, fields map[string]any) (model.Page, error)
	Remove(ctx context.Context, scope Scope, id string) error
}

// GanttService is the remote API for timeline blocks. Blocks are derived
// from issues server-side; Update adjusts the schedule fields of the
// underlying issue.
type GanttService interface {
	List(ctx context.Context, scope Scope) ([]model.GanttBlock, error)
	Update(ctx context.Context, scope Scope, blockID string, fields map[string]any) (model.GanttBlock, error)
}

// ActivityService is the remote API for the per-issue activity log.
type ActivityService interface {
	List(ctx context.Context, scope Scope, issueID string) ([]model.Activity, error)
}

// Bundle groups one implementation of every service interface for
// injection into the store layer.
type Bundle struct {
	Issues        IssueService
	Reactions     ReactionService
	Comments      CommentService
	Links         LinkService
	Attachments   AttachmentService
	Subscriptions SubscriptionService
	Relations     RelationService
	Members       MemberService
	Pages         PageService
	Gantt         GanttService
	Activity      ActivityService
}
