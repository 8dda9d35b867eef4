package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// RelationStore holds issue-to-issue relations. A relation is indexed
// under both issue ids so either side can list it; TypeFor on the record
// orients it for display. Self-referential and duplicate relations are
// rejected before any state change or service call.
type RelationStore struct {
	svc service.RelationService
	c   *Container[model.Relation]
}

// NewRelationStore returns an empty relation store backed by svc.
func NewRelationStore(svc service.RelationService) *RelationStore {
	return &RelationStore{svc: svc, c: NewContainer[model.Relation]()}
}

// Fetch loads all relations touching an issue from the service. Each
// fetched relation is indexed under both of its issue ids.
func (s *RelationStore) Fetch(ctx context.Context, scope service.Scope, issueID string) error {
	if err := model.ValidateID("issue", issueID); err != nil {
		return err
	}
	recs, err := s.svc.List(ctx, scope, issueID)
	if err != nil {
		return fmt.Errorf("fetching relations: %w", err)
	}
	s.c.UpsertMany(issueID, recs)
	for _, rel := range recs {
		other := rel.RelatedIssueID
		if other == issueID {
			other = rel.IssueID
		}
		s.c.Insert(other, rel)
	}
	return nil
}

// Get returns a relation by id.
func (s *RelationStore) Get(id string) (model.Relation, bool) {
	return s.c.Get(id)
}

// ByIssue returns the relations touching an issue in insertion order. The
// second return value is false if the issue's relations have never been
// fetched.
func (s *RelationStore) ByIssue(issueID string) ([]model.Relation, bool) {
	return s.c.ListFor(issueID)
}

// find returns the local relation between a pair of issues, if any,
// regardless of direction.
func (s *RelationStore) find(issueID, relatedID string) (model.Relation, bool) {
	recs, ok := s.c.ListFor(issueID)
	if !ok {
		return model.Relation{}, false
	}
	for _, rel := range recs {
		if (rel.IssueID == issueID && rel.RelatedIssueID == relatedID) ||
			(rel.IssueID == relatedID && rel.RelatedIssueID == issueID) {
			return rel, true
		}
	}
	return model.Relation{}, false
}

// Create relates two issues optimistically and persists the relation. Any
// existing relation between the pair, in either direction, is a duplicate.
// On service failure the optimistic record is removed from both indices.
func (s *RelationStore) Create(ctx context.Context, scope service.Scope, issueID, relatedID string, typ model.RelationType) (model.Relation, error) {
	if err := model.ValidateID("issue", issueID); err != nil {
		return model.Relation{}, err
	}
	if err := model.ValidateID("issue", relatedID); err != nil {
		return model.Relation{}, err
	}
	if err := model.ValidateRelationType(typ); err != nil {
		return model.Relation{}, err
	}
	if issueID == relatedID {
		return model.Relation{}, ErrSelfRelation
	}
	if _, ok := s.find(issueID, relatedID); ok {
		return model.Relation{}, ErrDuplicateRelation
	}

	temp := model.Relation{
		ID:             model.NewTempID(),
		IssueID:        issueID,
		RelatedIssueID: relatedID,
		Type:           typ,
		CreatedAt:      time.Now().UTC(),
	}
	s.c.Insert(issueID, temp)
	s.c.Insert(relatedID, temp)

	var created model.Relation
	err := commit(ctx,
		func(ctx context.Context) error {
			rel, err := s.svc.Create(ctx, scope, temp)
			if err != nil {
				return fmt.Errorf("creating relation: %w", err)
			}
			created = rel
			return nil
		},
		func() {
			// The record is indexed under both issues; strip both index
			// entries before deleting the record, same as Remove, so
			// neither index is left holding a recordless id.
			s.c.RemoveIndexEntry(issueID, temp.ID)
			s.c.RemoveIndexEntry(relatedID, temp.ID)
			s.c.Delete(temp.ID)
		},
	)
	if err != nil {
		return model.Relation{}, err
	}

	s.c.ReplaceID(issueID, temp.ID, created)
	// The record was already replaced under the first index; only the
	// second index entry still points at the temporary id.
	s.c.ReplaceID(relatedID, temp.ID, created)
	return created, nil
}

// Remove deletes the relation between two issues optimistically and
// persists the deletion. A pair with no local relation is a precondition
// failure (ErrUnknownRecord). On service failure the record is restored at
// its previous position in both indices.
func (s *RelationStore) Remove(ctx context.Context, scope service.Scope, issueID, relatedID string) error {
	rel, ok := s.find(issueID, relatedID)
	if !ok {
		return fmt.Errorf("relation between %s and %s: %w", issueID, relatedID, ErrUnknownRecord)
	}

	// The record is indexed under both issues; strip both index entries
	// before deleting the record itself.
	pos := s.c.RemoveIndexEntry(issueID, rel.ID)
	otherPos := s.c.RemoveIndexEntry(relatedID, rel.ID)
	s.c.Delete(rel.ID)

	return commit(ctx,
		func(ctx context.Context) error {
			if err := s.svc.Remove(ctx, scope, rel.ID); err != nil {
				return fmt.Errorf("removing relation: %w", err)
			}
			return nil
		},
		func() {
			s.c.InsertAt(issueID, rel, pos)
			s.c.InsertAt(relatedID, rel, otherPos)
		},
	)
}
