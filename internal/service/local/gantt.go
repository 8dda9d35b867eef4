package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// Timeline blocks are a projection of the issues table: every issue in
// the project is a block, identified by its issue id. Blocks are spaced
// by sortSpacing; when repeated reorders shrink an adjacent gap below
// rebalanceThreshold the whole project is rewritten at even spacing.
const (
	sortSpacing        = 65536
	rebalanceThreshold = 1e-4
)

// validGanttFields is the set of issue columns a block update may touch.
var validGanttFields = map[string]bool{
	"start_date":  true,
	"target_date": true,
	"sort_order":  true,
}

type ganttService struct {
	s *Store
}

// List retrieves the project's timeline blocks in sort order. Undated
// issues appear as zero-duration blocks.
func (svc *ganttService) List(ctx context.Context, scope service.Scope) ([]model.GanttBlock, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, project_id, start_date, target_date, sort_order
		 FROM issues WHERE project_id = ? ORDER BY sort_order ASC, id ASC`, scope.Project,
	)
	if err != nil {
		return nil, fmt.Errorf("querying timeline: %w", err)
	}
	defer rows.Close()

	blocks := make([]model.GanttBlock, 0)
	for rows.Next() {
		b, err := scanBlockFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning timeline row: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// Update writes a block's schedule fields to its underlying issue and
// returns the stored block. A sort_order write may trigger a rebalance
// of the whole project's orders.
func (svc *ganttService) Update(ctx context.Context, scope service.Scope, blockID string, fields map[string]any) (model.GanttBlock, error) {
	if len(fields) == 0 {
		return svc.get(ctx, scope, blockID)
	}

	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var setClauses []string
	var args []any
	for _, field := range names {
		if !validGanttFields[field] {
			return model.GanttBlock{}, fmt.Errorf("invalid update field %q", field)
		}
		setClauses = append(setClauses, field+" = ?")
		args = append(args, bindFieldValue(fields[field]))
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, nowStamp(), blockID, scope.Project)

	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GanttBlock{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		fmt.Sprintf("UPDATE issues SET %s WHERE id = ? AND project_id = ?", strings.Join(setClauses, ", ")),
		args...,
	)
	if err != nil {
		return model.GanttBlock{}, fmt.Errorf("updating timeline block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.GanttBlock{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return model.GanttBlock{}, service.ErrNotFound
	}

	if _, ok := fields["sort_order"]; ok {
		if err := rebalanceIfCrowded(tx, scope.Project); err != nil {
			return model.GanttBlock{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.GanttBlock{}, fmt.Errorf("committing transaction: %w", err)
	}
	return svc.get(ctx, scope, blockID)
}

func (svc *ganttService) get(ctx context.Context, scope service.Scope, blockID string) (model.GanttBlock, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, project_id, start_date, target_date, sort_order
		 FROM issues WHERE id = ? AND project_id = ?`, blockID, scope.Project,
	)
	b, err := scanBlockFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GanttBlock{}, service.ErrNotFound
		}
		return model.GanttBlock{}, fmt.Errorf("scanning timeline block: %w", err)
	}
	return b, nil
}

// rebalanceIfCrowded reassigns the project's sort orders at even spacing
// when any adjacent pair has drifted too close for further midpoints.
func rebalanceIfCrowded(tx *sql.Tx, projectID string) error {
	rows, err := tx.Query(
		`SELECT id, sort_order FROM issues WHERE project_id = ? ORDER BY sort_order ASC, id ASC`,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("querying sort orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	var orders []float64
	for rows.Next() {
		var id string
		var order float64
		if err := rows.Scan(&id, &order); err != nil {
			return fmt.Errorf("scanning sort order: %w", err)
		}
		ids = append(ids, id)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crowded := false
	for i := 1; i < len(orders); i++ {
		if orders[i]-orders[i-1] < rebalanceThreshold {
			crowded = true
			break
		}
	}
	if !crowded {
		return nil
	}

	for i, id := range ids {
		if _, err := tx.Exec(
			`UPDATE issues SET sort_order = ? WHERE id = ?`,
			float64((i+1)*sortSpacing), id,
		); err != nil {
			return fmt.Errorf("rebalancing sort orders: %w", err)
		}
	}
	return nil
}

func scanBlockFrom(s scanner) (model.GanttBlock, error) {
	var b model.GanttBlock
	var startDate, targetDate sql.NullString
	if err := s.Scan(&b.ID, &b.ProjectID, &startDate, &targetDate, &b.SortOrder); err != nil {
		return model.GanttBlock{}, err
	}
	b.IssueID = b.ID
	var err error
	if b.StartDate, err = parseStamp(startDate.String); err != nil {
		return model.GanttBlock{}, err
	}
	if b.TargetDate, err = parseStamp(targetDate.String); err != nil {
		return model.GanttBlock{}, err
	}
	return b, nil
}
