package local

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// recordActivity logs a field change on an issue. It runs inside the
// caller's transaction so the change and its log entry land together.
func recordActivity(ex execer, issueID, field, oldVal, newVal, actorID string) error {
	_, err := ex.Exec(
		`INSERT INTO activity_log (id, issue_id, field_changed, old_value, new_value, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		model.NewID(), issueID, field, oldVal, newVal, nullString(actorID), nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

type activityService struct {
	s *Store
}

// List retrieves an issue's activity log, most recent first.
func (svc *activityService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Activity, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, field_changed, old_value, new_value, actor_id, created_at
		 FROM activity_log
		 WHERE issue_id = ?
		 ORDER BY created_at DESC, id DESC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		var oldVal, newVal, actorID sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.IssueID, &a.FieldChanged, &oldVal, &newVal, &actorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		a.OldValue = oldVal.String
		a.NewValue = newVal.String
		a.ActorID = actorID.String
		if a.CreatedAt, err = parseStamp(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return activities, nil
}
