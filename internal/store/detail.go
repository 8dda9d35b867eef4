package store

import (
	"context"

	"github.com/gridline-app/gridline/internal/service"
)

// IssueDetail aggregates the per-issue stores behind an issue's detail
// view and wires their cross-container side effects: each child store's
// count callback adjusts the parent issue's counter in the issue store, so
// adding a comment bumps CommentCount in list views before the service
// call resolves, and a rollback puts it back.
type IssueDetail struct {
	Comments      *CommentStore
	Reactions     *ReactionStore
	Links         *LinkStore
	Attachments   *AttachmentStore
	Subscriptions *SubscriptionStore
	Relations     *RelationStore
	Activity      *ActivityStore

	issues *IssueStore
}

// NewIssueDetail builds the detail stores from the service bundle and
// registers the counter callbacks against issues.
func NewIssueDetail(svc service.Bundle, issues *IssueStore) *IssueDetail {
	d := &IssueDetail{
		Comments:      NewCommentStore(svc.Comments),
		Reactions:     NewReactionStore(svc.Reactions),
		Links:         NewLinkStore(svc.Links),
		Attachments:   NewAttachmentStore(svc.Attachments),
		Subscriptions: NewSubscriptionStore(svc.Subscriptions),
		Relations:     NewRelationStore(svc.Relations),
		Activity:      NewActivityStore(svc.Activity),
		issues:        issues,
	}
	d.Comments.OnCountChange(issues.AdjustCommentCount)
	d.Links.OnCountChange(issues.AdjustLinkCount)
	d.Attachments.OnCountChange(issues.AdjustAttachmentCount)
	return d
}

// FetchAll loads every detail section for an issue. Sections load
// sequentially and the first failure aborts: a detail view with half its
// sections missing re-fetches on retry anyway, since fetches are
// idempotent merges.
func (d *IssueDetail) FetchAll(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	if err := d.Comments.Fetch(ctx, scope, issueID); err != nil {
		return err
	}
	if err := d.Reactions.Fetch(ctx, scope, issueID); err != nil {
		return err
	}
	if err := d.Links.Fetch(ctx, scope, issueID); err != nil {
		return err
	}
	if err := d.Attachments.Fetch(ctx, scope, issueID); err != nil {
		return err
	}
	if err := d.Subscriptions.Fetch(ctx, scope, issueID, memberID); err != nil {
		return err
	}
	if err := d.Relations.Fetch(ctx, scope, issueID); err != nil {
		return err
	}
	return d.Activity.Fetch(ctx, scope, issueID)
}
