package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/google/uuid"
)

var assignmentColumns = []string{"id", "car_id", "operator_id", "start_date", "end_date", "notes", "created_at", "created_by"}

func assignmentDst(a *domain.Assignment) []any {
	return []any{&a.ID, &a.CarID, &a.OperatorID, &a.StartDate, &a.EndDate, &a.Notes, &a.CreatedAt, &a.CreatedBy}
}

// CreateAssignment inserts an open assignment. A concurrent open assignment
// for the same operator or car fails on the partial unique indexes.
func (r *Repository) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return insertAssignment(ctx, r.dbpool, assignment)
}

func insertAssignment(ctx context.Context, q queryRower, assignment *domain.Assignment) error {
	query := `
		INSERT INTO car_operator_assignments (id, car_id, operator_id, start_date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}

	args := []any{
		assignment.ID,
		assignment.CarID,
		assignment.OperatorID,
		assignment.StartDate,
		assignment.Notes,
		assignment.CreatedBy,
	}
	return q.QueryRowContext(ctx, query, args...).Scan(&assignment.CreatedAt)
}

func (r *Repository) getAssignment(ctx context.Context, where sq.Sqlizer) (*domain.Assignment, error) {
	query, args, err := r.builder.Select(assignmentColumns...).
		From("car_operator_assignments").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	assignment := &domain.Assignment{}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(assignmentDst(assignment)...); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *Repository) GetAssignmentByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.getAssignment(ctx, sq.Eq{"id": id})
}

func (r *Repository) GetOpenAssignmentByOperator(ctx context.Context, operatorID string) (*domain.Assignment, error) {
	return r.getAssignment(ctx, sq.Eq{"operator_id": operatorID, "end_date": nil})
}

func (r *Repository) GetOpenAssignmentByCar(ctx context.Context, carID string) (*domain.Assignment, error) {
	return r.getAssignment(ctx, sq.Eq{"car_id": carID, "end_date": nil})
}

// CloseAssignment sets the end date of an open assignment. Notes are only
// replaced when given. It returns sql.ErrNoRows when the assignment is
// missing or already closed.
func (r *Repository) CloseAssignment(ctx context.Context, id string, endDate domain.Date, notes *string) (*domain.Assignment, error) {
	query := `
		UPDATE car_operator_assignments
		SET
			end_date = $1,
			notes = COALESCE($2, notes)
		WHERE id = $3 AND end_date IS NULL
		RETURNING id, car_id, operator_id, start_date, end_date, notes, created_at, created_by
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	assignment := &domain.Assignment{}
	if err := r.dbpool.QueryRowContext(ctx, query, endDate, notes, id).Scan(assignmentDst(assignment)...); err != nil {
		return nil, err
	}

	return assignment, nil
}

// UpdateAssignmentNotes replaces the notes. A nil value clears them.
func (r *Repository) UpdateAssignmentNotes(ctx context.Context, id string, notes *string) (*domain.Assignment, error) {
	query := `
		UPDATE car_operator_assignments
		SET notes = $1
		WHERE id = $2
		RETURNING id, car_id, operator_id, start_date, end_date, notes, created_at, created_by
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	assignment := &domain.Assignment{}
	if err := r.dbpool.QueryRowContext(ctx, query, notes, id).Scan(assignmentDst(assignment)...); err != nil {
		return nil, err
	}

	return assignment, nil
}

// ListAssignments returns matching assignments, most recent start first.
func (r *Repository) ListAssignments(ctx context.Context, f domain.AssignmentFilters) ([]domain.Assignment, error) {
	where := sq.And{}
	if f.CarID != nil {
		where = append(where, sq.Eq{"car_id": *f.CarID})
	}
	if f.OperatorID != nil {
		where = append(where, sq.Eq{"operator_id": *f.OperatorID})
	}
	if f.Open != nil {
		if *f.Open {
			where = append(where, sq.Eq{"end_date": nil})
		} else {
			where = append(where, sq.NotEq{"end_date": nil})
		}
	}

	query, args, err := r.builder.Select(assignmentColumns...).
		From("car_operator_assignments").
		Where(where).
		OrderBy("start_date DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]domain.Assignment, 0)
	for rows.Next() {
		var assignment domain.Assignment
		if err := rows.Scan(assignmentDst(&assignment)...); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

