package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// validSortFields is the set of columns allowed for sorting.
// WARNING: These keys are interpolated directly into SQL ORDER BY clauses.
// Only add single-word column names that exactly match the issues table schema.
var validSortFields = map[string]bool{
	"title":      true,
	"status":     true,
	"priority":   true,
	"sort_order": true,
	"created_at": true,
	"updated_at": true,
}

// validUpdateFields is the set of columns allowed in Update.
var validUpdateFields = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"priority":    true,
	"assignee_id": true,
	"parent_id":   true,
	"start_date":  true,
	"target_date": true,
	"sort_order":  true,
}

// issueColumns selects an issue row plus its aggregate counters. The
// counters are computed, never stored, so they cannot drift.
const issueColumns = `i.id, i.project_id, i.parent_id, i.title, i.description, i.status, i.priority, i.assignee_id,
	i.start_date, i.target_date, i.sort_order, i.created_at, i.updated_at,
	(SELECT COUNT(*) FROM comments c WHERE c.issue_id = i.id),
	(SELECT COUNT(*) FROM links lk WHERE lk.issue_id = i.id),
	(SELECT COUNT(*) FROM attachments at WHERE at.issue_id = i.id),
	(SELECT COUNT(*) FROM issues ch WHERE ch.parent_id = i.id)`

type issueService struct {
	s *Store
}

// List retrieves issues matching the given filters. It returns the
// matching issues and the total count of matching rows (ignoring
// Limit/Offset).
func (svc *issueService) List(ctx context.Context, scope service.Scope, f service.IssueFilter) ([]model.Issue, int, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}

	whereClauses := []string{"i.project_id = ?"}
	args := []any{scope.Project}
	var joinClause string

	// Auto-include done if the status filter explicitly requests it.
	if !f.IncludeDone {
		for _, s := range f.Statuses {
			if s == string(model.StatusDone) {
				f.IncludeDone = true
				break
			}
		}
	}
	if !f.IncludeDone {
		whereClauses = append(whereClauses, "i.status != 'done'")
	}

	if len(f.Statuses) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("i.status IN (%s)", makePlaceholders(len(f.Statuses))))
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if len(f.Priorities) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("i.priority IN (%s)", makePlaceholders(len(f.Priorities))))
		for _, p := range f.Priorities {
			args = append(args, p)
		}
	}
	if f.AssigneeID != "" {
		whereClauses = append(whereClauses, "i.assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	if f.ParentID != "" {
		whereClauses = append(whereClauses, "i.parent_id = ?")
		args = append(args, f.ParentID)
	}
	if f.RootsOnly {
		whereClauses = append(whereClauses, "i.parent_id IS NULL")
	}

	// Labels filter: AND logic, the issue must carry ALL named labels.
	if len(f.Labels) > 0 {
		joinClause = `JOIN issue_labels il ON il.issue_id = i.id
		              JOIN labels l ON l.id = il.label_id`
		whereClauses = append(whereClauses, fmt.Sprintf("l.name IN (%s)", makePlaceholders(len(f.Labels))))
		for _, l := range f.Labels {
			args = append(args, l)
		}
	}

	whereSQL := "WHERE " + strings.Join(whereClauses, " AND ")

	havingSQL := ""
	groupBySQL := ""
	if len(f.Labels) > 0 {
		groupBySQL = "GROUP BY i.id"
		havingSQL = fmt.Sprintf("HAVING COUNT(DISTINCT l.name) = %d", len(f.Labels))
	}

	countQuery := fmt.Sprintf(
		`SELECT COUNT(*) FROM (SELECT i.id FROM issues i %s %s %s %s)`,
		joinClause, whereSQL, groupBySQL, havingSQL,
	)
	var totalCount int
	if err := svc.s.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("counting issues: %w", err)
	}

	sortField := "created_at"
	if f.Sort != "" && validSortFields[f.Sort] {
		sortField = f.Sort
	}
	// Defense-in-depth: reject any sort field that doesn't look like a
	// plain column name, even if it passed the allowlist check above.
	if !safeIdentifier.MatchString(sortField) {
		return nil, 0, fmt.Errorf("invalid sort field %q", sortField)
	}
	sortDir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		sortDir = "ASC"
	}

	// Safe: sortField validated against validSortFields and safeIdentifier;
	// sortDir is "ASC" or "DESC".
	mainQuery := fmt.Sprintf(
		`SELECT %s FROM issues i %s %s %s %s ORDER BY i.%s %s`,
		issueColumns, joinClause, whereSQL, groupBySQL, havingSQL, sortField, sortDir,
	)

	mainArgs := make([]any, len(args))
	copy(mainArgs, args)
	if f.Limit > 0 {
		mainQuery += " LIMIT ?"
		mainArgs = append(mainArgs, f.Limit)
	}
	if f.Offset > 0 {
		mainQuery += " OFFSET ?"
		mainArgs = append(mainArgs, f.Offset)
	}

	rows, err := svc.s.db.QueryContext(ctx, mainQuery, mainArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	issues := make([]model.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating issue rows: %w", err)
	}

	if err := svc.hydrateLabels(ctx, issues); err != nil {
		return nil, 0, fmt.Errorf("hydrating labels: %w", err)
	}

	return issues, totalCount, nil
}

// Get retrieves an issue by id.
func (svc *issueService) Get(ctx context.Context, scope service.Scope, id string) (model.Issue, error) {
	row := svc.s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM issues i WHERE i.id = ? AND i.project_id = ?`, issueColumns),
		id, scope.Project,
	)
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Issue{}, service.ErrNotFound
		}
		return model.Issue{}, fmt.Errorf("scanning issue: %w", err)
	}

	one := []model.Issue{issue}
	if err := svc.hydrateLabels(ctx, one); err != nil {
		return model.Issue{}, fmt.Errorf("hydrating labels: %w", err)
	}
	return one[0], nil
}

// Create inserts a new issue and returns it with its assigned id. Labels
// are created (find-or-create) and linked within the same transaction, and
// the creation is recorded in the activity log.
func (svc *issueService) Create(ctx context.Context, scope service.Scope, issue model.Issue) (model.Issue, error) {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Issue{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	issue.ID = model.NewID()
	issue.ProjectID = scope.Project
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	// New issues land at the end of the timeline.
	var maxOrder sql.NullFloat64
	if err := tx.QueryRow(
		`SELECT MAX(sort_order) FROM issues WHERE project_id = ?`, scope.Project,
	).Scan(&maxOrder); err != nil {
		return model.Issue{}, fmt.Errorf("reading max sort order: %w", err)
	}
	issue.SortOrder = maxOrder.Float64 + 65536

	_, err = tx.Exec(
		`INSERT INTO issues (id, project_id, parent_id, title, description, status, priority, assignee_id,
		 start_date, target_date, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID,
		issue.ProjectID,
		nullString(issue.ParentID),
		issue.Title,
		issue.Description,
		string(issue.Status),
		string(issue.Priority),
		nullString(issue.AssigneeID),
		nullStamp(issue.StartDate),
		nullStamp(issue.TargetDate),
		issue.SortOrder,
		nowStamp(),
		nowStamp(),
	)
	if err != nil {
		return model.Issue{}, fmt.Errorf("inserting issue: %w", err)
	}

	for _, name := range issue.Labels {
		labelID, err := findOrCreateLabel(tx, name)
		if err != nil {
			return model.Issue{}, fmt.Errorf("processing label %q: %w", name, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO issue_labels (issue_id, label_id) VALUES (?, ?)`,
			issue.ID, labelID,
		); err != nil {
			return model.Issue{}, fmt.Errorf("linking label %q: %w", name, err)
		}
	}

	if err := recordActivity(tx, issue.ID, "created", "", "", svc.s.actor); err != nil {
		return model.Issue{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Issue{}, fmt.Errorf("committing transaction: %w", err)
	}

	return issue, nil
}

// Update modifies an existing issue. Only keys present in fields are
// changed; updated_at is always set. Activity is recorded for each changed
// field within the same transaction, and the post-update row is returned.
func (svc *issueService) Update(ctx context.Context, scope service.Scope, id string, fields map[string]any) (model.Issue, error) {
	if len(fields) == 0 {
		return svc.Get(ctx, scope, id)
	}

	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Issue{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := getIssueTx(tx, scope, id)
	if err != nil {
		return model.Issue{}, err
	}

	// Sort keys for deterministic query generation.
	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var setClauses []string
	var args []any
	for _, field := range names {
		if !validUpdateFields[field] {
			return model.Issue{}, fmt.Errorf("invalid update field %q", field)
		}
		setClauses = append(setClauses, field+" = ?")
		args = append(args, bindFieldValue(fields[field]))
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, nowStamp())
	args = append(args, id, scope.Project)

	query := fmt.Sprintf(
		"UPDATE issues SET %s WHERE id = ? AND project_id = ?",
		strings.Join(setClauses, ", "),
	)
	res, err := tx.Exec(query, args...)
	if err != nil {
		return model.Issue{}, fmt.Errorf("updating issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Issue{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.Issue{}, service.ErrNotFound
	}

	for _, field := range names {
		oldVal := issueFieldValue(old, field)
		newVal := fmt.Sprintf("%v", fields[field])
		if oldVal != newVal {
			if err := recordActivity(tx, id, field, oldVal, newVal, svc.s.actor); err != nil {
				return model.Issue{}, err
			}
		}
	}

	updated, err := getIssueTx(tx, scope, id)
	if err != nil {
		return model.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Issue{}, fmt.Errorf("committing transaction: %w", err)
	}
	return updated, nil
}

// Remove deletes an issue and all of its descendants. Foreign key cascades
// clean up comments, reactions, links, attachments, subscriptions,
// relations, and activity rows.
func (svc *issueService) Remove(ctx context.Context, scope service.Scope, id string) error {
	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM issues WHERE id = ? AND project_id = ?)", id, scope.Project,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking issue existence: %w", err)
	}
	if !exists {
		return service.ErrNotFound
	}

	_, err = tx.Exec(
		`WITH RECURSIVE tree(id) AS (
			SELECT id FROM issues WHERE id = ?
			UNION ALL
			SELECT i.id FROM issues i JOIN tree t ON i.parent_id = t.id
		)
		DELETE FROM issues WHERE id IN (SELECT id FROM tree)`, id,
	)
	if err != nil {
		return fmt.Errorf("cascade deleting issue: %w", err)
	}

	return tx.Commit()
}

// hydrateLabels bulk-loads labels for a set of issues, populating each
// issue's Labels field in place. This avoids N+1 queries in list callers.
func (svc *issueService) hydrateLabels(ctx context.Context, issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	ids := make([]any, len(issues))
	byID := make(map[string]int, len(issues))
	for i := range issues {
		ids[i] = issues[i].ID
		byID[issues[i].ID] = i
	}

	query := fmt.Sprintf(
		`SELECT il.issue_id, l.name FROM issue_labels il
		 JOIN labels l ON l.id = il.label_id
		 WHERE il.issue_id IN (%s)
		 ORDER BY l.name`, makePlaceholders(len(ids)),
	)
	rows, err := svc.s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issueID, name string
		if err := rows.Scan(&issueID, &name); err != nil {
			return fmt.Errorf("scanning label: %w", err)
		}
		if i, ok := byID[issueID]; ok {
			issues[i].Labels = append(issues[i].Labels, name)
		}
	}
	return rows.Err()
}

// getIssueTx retrieves an issue by id within a transaction.
func getIssueTx(tx *sql.Tx, scope service.Scope, id string) (model.Issue, error) {
	row := tx.QueryRow(
		fmt.Sprintf(`SELECT %s FROM issues i WHERE i.id = ? AND i.project_id = ?`, issueColumns),
		id, scope.Project,
	)
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Issue{}, service.ErrNotFound
		}
		return model.Issue{}, fmt.Errorf("scanning issue: %w", err)
	}
	return issue, nil
}

// scanIssueFrom scans a single issue from any scanner (*sql.Row or *sql.Rows).
func scanIssueFrom(s scanner) (model.Issue, error) {
	var i model.Issue
	var parentID, description, assigneeID, startDate, targetDate sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&i.ID, &i.ProjectID, &parentID, &i.Title, &description,
		&i.Status, &i.Priority, &assigneeID,
		&startDate, &targetDate, &i.SortOrder,
		&createdAt, &updatedAt,
		&i.CommentCount, &i.LinkCount, &i.AttachmentCount, &i.SubIssueCount,
	)
	if err != nil {
		return model.Issue{}, err
	}

	i.ParentID = parentID.String
	i.Description = description.String
	i.AssigneeID = assigneeID.String

	if i.StartDate, err = parseStamp(startDate.String); err != nil {
		return model.Issue{}, err
	}
	if i.TargetDate, err = parseStamp(targetDate.String); err != nil {
		return model.Issue{}, err
	}
	if i.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Issue{}, err
	}
	if i.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return model.Issue{}, err
	}
	return i, nil
}

// issueFieldValue extracts a string representation of a field for activity
// logging.
func issueFieldValue(issue model.Issue, field string) string {
	switch field {
	case "title":
		return issue.Title
	case "description":
		return issue.Description
	case "status":
		return string(issue.Status)
	case "priority":
		return string(issue.Priority)
	case "assignee_id":
		return issue.AssigneeID
	case "parent_id":
		return issue.ParentID
	case "start_date":
		if issue.StartDate.IsZero() {
			return ""
		}
		return issue.StartDate.Format(time.RFC3339)
	case "target_date":
		if issue.TargetDate.IsZero() {
			return ""
		}
		return issue.TargetDate.Format(time.RFC3339)
	case "sort_order":
		return fmt.Sprintf("%v", issue.SortOrder)
	default:
		return ""
	}
}

// bindFieldValue converts patch values to SQL bind values, mapping empty
// strings for nullable references and zero times to NULL.
func bindFieldValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return nullStamp(t)
	case string:
		return t
	default:
		return v
	}
}

// nullString maps "" to NULL for nullable text columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// findOrCreateLabel looks up a label by name, creating it if it doesn't
// exist, and returns the label id.
func findOrCreateLabel(tx *sql.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRow("SELECT id FROM labels WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("querying label: %w", err)
	}

	id = model.NewID()
	if _, err := tx.Exec("INSERT INTO labels (id, name) VALUES (?, ?)", id, name); err != nil {
		return "", fmt.Errorf("inserting label: %w", err)
	}
	return id, nil
}
