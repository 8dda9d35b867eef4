package store

import (
	"time"

	"github.com/gridline-app/gridline/internal/service"
)

// Session is the root of the state layer for one project: it owns every
// store, the scope they operate in, and the identity of the signed-in
// member. Construct one per opened project and share it; all stores are
// safe for concurrent use.
type Session struct {
	Scope           service.Scope
	CurrentMemberID string

	Issues   *IssueStore
	Members  *MemberStore
	Pages    *PageStore
	Gantt    *GanttStore
	Detail   *IssueDetail
	Autosave *TitleAutosave
}

// SessionOptions tunes session construction. The zero value uses defaults.
type SessionOptions struct {
	AutosaveDelay   time.Duration
	OnAutosaveError func(error)
	OnRefreshError  func(error)
}

// NewSession builds the full store tree over the service bundle.
func NewSession(svc service.Bundle, scope service.Scope, currentMemberID string, opts SessionOptions) *Session {
	issues := NewIssueStore(svc.Issues)
	pages := NewPageStore(svc.Pages)
	gantt := NewGanttStore(svc.Gantt)
	if opts.OnRefreshError != nil {
		gantt.OnRefreshError(opts.OnRefreshError)
	}

	return &Session{
		Scope:           scope,
		CurrentMemberID: currentMemberID,
		Issues:          issues,
		Members:         NewMemberStore(svc.Members),
		Pages:           pages,
		Gantt:           gantt,
		Detail:          NewIssueDetail(svc, issues),
		Autosave:        NewTitleAutosave(pages, scope, opts.AutosaveDelay, opts.OnAutosaveError),
	}
}
