package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_unit_store.go -package=mocks coursetutor/internal/storage UnitStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UnitStore defines the interface for unit storage operations.
type UnitStore interface {
	// Create inserts a unit and sets its ID and CreatedAt.
	Create(ctx context.Context, unit *Unit) error
	// Get returns a unit by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id int64) (*Unit, error)
	// ListByCourse returns a course's units ordered by level, sort order and ID.
	ListByCourse(ctx context.Context, courseID int64) ([]Unit, error)
	// GetOrCreateByName returns the course's unit with this name, creating it at level if absent.
	GetOrCreateByName(ctx context.Context, courseID int64, name string, level int) (*Unit, error)
}

// UnitRepo implements UnitStore on SQLite.
type UnitRepo struct {
	db *sql.DB
}

// NewUnitRepo creates a new UnitRepo.
func NewUnitRepo(db *sql.DB) *UnitRepo {
	return &UnitRepo{db: db}
}

const unitColumns = "id, course_id, parent_id, name, description, sort_order, level, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(s rowScanner) (*Unit, error) {
	var u Unit
	var parent sql.NullInt64
	if err := s.Scan(&u.ID, &u.CourseID, &parent, &u.Name, &u.Description, &u.Order, &u.Level, &u.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		u.ParentID = &parent.Int64
	}
	return &u, nil
}

// Create inserts a unit and sets its ID and CreatedAt.
func (r *UnitRepo) Create(ctx context.Context, unit *Unit) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO units (course_id, parent_id, name, description, sort_order, level) VALUES (?, ?, ?, ?, ?, ?)",
		unit.CourseID, unit.ParentID, unit.Name, unit.Description, unit.Order, unit.Level,
	)
	if err != nil {
		return fmt.Errorf("failed to insert unit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read unit id: %w", err)
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*unit = *created
	return nil
}

// Get returns a unit by ID. Returns ErrNotFound if not found.
func (r *UnitRepo) Get(ctx context.Context, id int64) (*Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx, "SELECT "+unitColumns+" FROM units WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unit: %w", err)
	}
	return u, nil
}

// ListByCourse returns a course's units ordered by level, sort order and ID.
func (r *UnitRepo) ListByCourse(ctx context.Context, courseID int64) ([]Unit, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE course_id = ? ORDER BY level, sort_order, id", courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var units []Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return units, nil
}

// GetOrCreateByName returns the course's unit with this name, creating it at level if absent.
func (r *UnitRepo) GetOrCreateByName(ctx context.Context, courseID int64, name string, level int) (*Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE course_id = ? AND name = ? ORDER BY id LIMIT 1",
		courseID, name,
	))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query unit: %w", err)
	}

	unit := &Unit{CourseID: courseID, Name: name, Level: level}
	if err := r.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}
