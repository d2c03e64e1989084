package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_course_store.go -package=mocks coursetutor/internal/storage CourseStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CourseStore defines the interface for course storage operations.
type CourseStore interface {
	// Create inserts a course and sets its ID and CreatedAt.
	Create(ctx context.Context, course *Course) error
	// Get returns a course by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id int64) (*Course, error)
	// ListByOwner returns the owner's courses, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Course, error)
	// Delete removes a course and, through foreign keys, its units, files, chunks, sessions and messages.
	Delete(ctx context.Context, id int64) error
}

// CourseRepo implements CourseStore on SQLite.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo creates a new CourseRepo.
func NewCourseRepo(db *sql.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

const courseColumns = "id, owner_id, name, description, created_at"

// Create inserts a course and sets its ID and CreatedAt.
func (r *CourseRepo) Create(ctx context.Context, course *Course) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO courses (owner_id, name, description) VALUES (?, ?, ?)",
		course.OwnerID, course.Name, course.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read course id: %w", err)
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*course = *created
	return nil
}

// Get returns a course by ID. Returns ErrNotFound if not found.
func (r *CourseRepo) Get(ctx context.Context, id int64) (*Course, error) {
	var c Course
	err := r.db.QueryRowContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id = ?", id,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query course: %w", err)
	}
	return &c, nil
}

// ListByOwner returns the owner's courses, newest first.
func (r *CourseRepo) ListByOwner(ctx context.Context, ownerID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE owner_id = ? ORDER BY id DESC", ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return courses, nil
}

// Delete removes a course. Returns ErrNotFound if it did not exist.
func (r *CourseRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
