package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/assignment"
)

type assignmentRepository struct {
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

var startOrdering = core.DBOrdering{Field: "start_at", Ascending: true}

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{exec: db}
}

const selectAssignment = `SELECT id, class_id, name, start_at, end_at, created_at FROM assignments`

func (repo *assignmentRepository) scan(rows *sql.Rows) ([]assignment.Assignment, error) {
	var asgs []assignment.Assignment
	for rows.Next() {
		var asg assignment.Assignment
		if err := rows.Scan(&asg.ID, &asg.ClassID, &asg.Name, &asg.StartAt, &asg.EndAt, &asg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning assignment")
		}
		asgs = append(asgs, asg)
	}
	return asgs, rows.Err()
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.NewString()
	query := `
INSERT INTO assignments (id, class_id, name, start_at, end_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.exec.ExecContext(ctx, query,
		asg.ID, asg.ClassID, asg.Name, asg.StartAt, asg.EndAt, asg.CreatedAt,
	); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignmentsByClass(ctx context.Context, classID string) ([]assignment.Assignment, error) {
	rows, err := repo.exec.QueryContext(ctx, selectAssignment+` WHERE class_id = $1 ORDER BY `+startOrdering.String(), classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	defer func() { _ = rows.Close() }()
	return repo.scan(rows)
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	var asg assignment.Assignment
	err := repo.exec.QueryRowContext(ctx, selectAssignment+` WHERE id = $1`, id).
		Scan(&asg.ID, &asg.ClassID, &asg.Name, &asg.StartAt, &asg.EndAt, &asg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	query := `UPDATE assignments SET name = $2, start_at = $3, end_at = $4 WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, query, asg.ID, asg.Name, asg.StartAt, asg.EndAt)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	// evaluations cascade at the schema level
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}
