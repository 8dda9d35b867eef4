package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

var errBoom = errors.New("boom")

var testScope = service.Scope{Workspace: "acme", Project: "proj_1"}

// gate blocks a fake service call until released, so tests can interleave
// two in-flight operations deterministically.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// wait blocks the fake call. It signals entry first so the test can
// observe that the call is in flight.
func (g *gate) wait() {
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func (g *gate) open() { close(g.release) }

// idSeq hands out deterministic server ids.
type idSeq struct {
	prefix string
	n      atomic.Int64
}

func (s *idSeq) next() string {
	return fmt.Sprintf("%s_%d", s.prefix, s.n.Add(1))
}

type fakeCommentService struct {
	ids      idSeq
	listRecs []model.Comment
	listErr  error

	createErr  error
	createGate *gate
	updateErr  error
	removeErr  error
	removeGate *gate
}

func (f *fakeCommentService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Comment, error) {
	return f.listRecs, f.listErr
}

func (f *fakeCommentService) Create(ctx context.Context, scope service.Scope, issueID string, c model.Comment) (model.Comment, error) {
	if f.createGate != nil {
		f.createGate.wait()
	}
	if f.createErr != nil {
		return model.Comment{}, f.createErr
	}
	c.ID = f.ids.next()
	c.IssueID = issueID
	return c, nil
}

func (f *fakeCommentService) Update(ctx context.Context, scope service.Scope, issueID, id, body string) (model.Comment, error) {
	if f.updateErr != nil {
		return model.Comment{}, f.updateErr
	}
	return model.Comment{ID: id, IssueID: issueID, Body: body}, nil
}

func (f *fakeCommentService) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	if f.removeGate != nil {
		f.removeGate.wait()
	}
	return f.removeErr
}

type fakeReactionService struct {
	ids      idSeq
	listRecs []model.Reaction
	listErr  error

	createErr error
	removeErr error
}

func (f *fakeReactionService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Reaction, error) {
	return f.listRecs, f.listErr
}

func (f *fakeReactionService) Create(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) (model.Reaction, error) {
	if f.createErr != nil {
		return model.Reaction{}, f.createErr
	}
	return model.Reaction{ID: f.ids.next(), IssueID: issueID, Emoji: emoji, MemberID: memberID}, nil
}

func (f *fakeReactionService) Remove(ctx context.Context, scope service.Scope, issueID, emoji, memberID string) error {
	return f.removeErr
}

type fakeLinkService struct {
	ids      idSeq
	listRecs []model.Link
	listErr  error

	createErr error
	updateErr error
	removeErr error
}

func (f *fakeLinkService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Link, error) {
	return f.listRecs, f.listErr
}

func (f *fakeLinkService) Create(ctx context.Context, scope service.Scope, issueID string, l model.Link) (model.Link, error) {
	if f.createErr != nil {
		return model.Link{}, f.createErr
	}
	l.ID = f.ids.next()
	l.IssueID = issueID
	return l, nil
}

func (f *fakeLinkService) Update(ctx context.Context, scope service.Scope, issueID, id string, fields map[string]any) (model.Link, error) {
	if f.updateErr != nil {
		return model.Link{}, f.updateErr
	}
	l := model.Link{ID: id, IssueID: issueID}
	if v, ok := fields["title"].(string); ok {
		l.Title = v
	}
	if v, ok := fields["url"].(string); ok {
		l.URL = v
	}
	return l, nil
}

func (f *fakeLinkService) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	return f.removeErr
}

type fakeAttachmentService struct {
	ids      idSeq
	listRecs []model.Attachment
	listErr  error

	uploadErr  error
	uploadGate *gate
	// progressSteps are reported through req.Progress before settling.
	progressSteps []int
	removeErr     error
}

func (f *fakeAttachmentService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Attachment, error) {
	return f.listRecs, f.listErr
}

func (f *fakeAttachmentService) Upload(ctx context.Context, scope service.Scope, issueID string, req service.UploadRequest) (model.Attachment, error) {
	for _, p := range f.progressSteps {
		if req.Progress != nil {
			req.Progress(p)
		}
	}
	if f.uploadGate != nil {
		f.uploadGate.wait()
	}
	if f.uploadErr != nil {
		return model.Attachment{}, f.uploadErr
	}
	if req.Content != nil {
		io.Copy(io.Discard, req.Content)
	}
	return model.Attachment{
		ID:       f.ids.next(),
		IssueID:  issueID,
		FileName: req.FileName,
		Size:     req.Size,
	}, nil
}

func (f *fakeAttachmentService) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	return f.removeErr
}

type fakeSubscriptionService struct {
	ids    idSeq
	getSub model.Subscription
	getOK  bool
	getErr error

	subscribeErr   error
	unsubscribeErr error
}

func (f *fakeSubscriptionService) Get(ctx context.Context, scope service.Scope, issueID, memberID string) (model.Subscription, bool, error) {
	return f.getSub, f.getOK, f.getErr
}

func (f *fakeSubscriptionService) Subscribe(ctx context.Context, scope service.Scope, issueID, memberID string) (model.Subscription, error) {
	if f.subscribeErr != nil {
		return model.Subscription{}, f.subscribeErr
	}
	return model.Subscription{ID: f.ids.next(), IssueID: issueID, MemberID: memberID}, nil
}

func (f *fakeSubscriptionService) Unsubscribe(ctx context.Context, scope service.Scope, issueID, memberID string) error {
	return f.unsubscribeErr
}

type fakeRelationService struct {
	ids      idSeq
	listRecs []model.Relation
	listErr  error

	createErr error
	removeErr error
}

func (f *fakeRelationService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Relation, error) {
	return f.listRecs, f.listErr
}

func (f *fakeRelationService) Create(ctx context.Context, scope service.Scope, rel model.Relation) (model.Relation, error) {
	if f.createErr != nil {
		return model.Relation{}, f.createErr
	}
	rel.ID = f.ids.next()
	return rel, nil
}

func (f *fakeRelationService) Remove(ctx context.Context, scope service.Scope, id string) error {
	return f.removeErr
}

type fakeMemberService struct {
	listRecs []model.Member
	listErr  error

	updateRoleErr error
	removeErr     error
}

func (f *fakeMemberService) List(ctx context.Context, scope service.Scope) ([]model.Member, error) {
	return f.listRecs, f.listErr
}

func (f *fakeMemberService) UpdateRole(ctx context.Context, scope service.Scope, id string, role model.Role) (model.Member, error) {
	if f.updateRoleErr != nil {
		return model.Member{}, f.updateRoleErr
	}
	return model.Member{ID: id, Role: role}, nil
}

func (f *fakeMemberService) Remove(ctx context.Context, scope service.Scope, id string) error {
	return f.removeErr
}

type fakePageService struct {
	ids      idSeq
	listRecs []model.Page
	listErr  error

	createErr error
	updateErr error
	removeErr error

	mu      sync.Mutex
	updates []map[string]any
}

func (f *fakePageService) List(ctx context.Context, scope service.Scope) ([]model.Page, error) {
	return f.listRecs, f.listErr
}

func (f *fakePageService) Create(ctx context.Context, scope service.Scope, p model.Page) (model.Page, error) {
	if f.createErr != nil {
		return model.Page{}, f.createErr
	}
	p.ID = f.ids.next()
	return p, nil
}

func (f *fakePageService) Update(ctx context.Context, scope service.Scope, id string, fields map[string]any) (model.Page, error) {
	f.mu.Lock()
	f.updates = append(f.updates, fields)
	f.mu.Unlock()
	if f.updateErr != nil {
		return model.Page{}, f.updateErr
	}
	p := model.Page{ID: id, ProjectID: scope.Project}
	if v, ok := fields["title"].(string); ok {
		p.Title = v
	}
	if v, ok := fields["access"].(string); ok {
		p.Access = model.PageAccess(v)
	}
	return p, nil
}

func (f *fakePageService) updateCalls() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.updates))
	copy(out, f.updates)
	return out
}

func (f *fakePageService) Remove(ctx context.Context, scope service.Scope, id string) error {
	return f.removeErr
}

type fakeGanttService struct {
	mu       sync.Mutex
	listRecs []model.GanttBlock
	listErr  error

	updateErr error
	// lastFields captures the field map of the most recent Update call.
	lastFields map[string]any
}

func (f *fakeGanttService) List(ctx context.Context, scope service.Scope) ([]model.GanttBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.GanttBlock, len(f.listRecs))
	copy(out, f.listRecs)
	return out, nil
}

func (f *fakeGanttService) Update(ctx context.Context, scope service.Scope, blockID string, fields map[string]any) (model.GanttBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFields = fields
	if f.updateErr != nil {
		return model.GanttBlock{}, f.updateErr
	}
	b := model.GanttBlock{ID: blockID, ProjectID: scope.Project}
	if v, ok := fields["sort_order"].(float64); ok {
		b.SortOrder = v
	}
	return b, nil
}

type fakeIssueService struct {
	ids      idSeq
	listRecs []model.Issue
	listErr  error
	getRec   model.Issue
	getErr   error

	createErr error
	updateErr error
	removeErr error
}

func (f *fakeIssueService) List(ctx context.Context, scope service.Scope, filter service.IssueFilter) ([]model.Issue, int, error) {
	return f.listRecs, len(f.listRecs), f.listErr
}

func (f *fakeIssueService) Get(ctx context.Context, scope service.Scope, id string) (model.Issue, error) {
	return f.getRec, f.getErr
}

func (f *fakeIssueService) Create(ctx context.Context, scope service.Scope, issue model.Issue) (model.Issue, error) {
	if f.createErr != nil {
		return model.Issue{}, f.createErr
	}
	issue.ID = f.ids.next()
	issue.ProjectID = scope.Project
	return issue, nil
}

func (f *fakeIssueService) Update(ctx context.Context, scope service.Scope, id string, fields map[string]any) (model.Issue, error) {
	if f.updateErr != nil {
		return model.Issue{}, f.updateErr
	}
	issue := model.Issue{ID: id, ProjectID: scope.Project}
	if v, ok := fields["title"].(string); ok {
		issue.Title = v
	}
	if v, ok := fields["status"].(string); ok {
		issue.Status = model.Status(v)
	}
	if v, ok := fields["priority"].(string); ok {
		issue.Priority = model.Priority(v)
	}
	return issue, nil
}

func (f *fakeIssueService) Remove(ctx context.Context, scope service.Scope, id string) error {
	return f.removeErr
}

type fakeActivityService struct {
	listRecs []model.Activity
	listErr  error
}

func (f *fakeActivityService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Activity, error) {
	return f.listRecs, f.listErr
}
