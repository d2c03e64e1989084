package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_course_index.go -package=mocks coursetutor/internal/service CourseIndex
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_course_service.go -package=mocks coursetutor/internal/service CourseService

import (
	"context"
	"sort"
	"strings"

	"coursetutor/internal/contextutil"
	"coursetutor/internal/storage"
)

// CourseIndex is the vector-side view of a course. vectorstore.CourseIndex implements it.
type CourseIndex interface {
	DeleteCollection(ctx context.Context, courseID int64) error
	DeletePoints(ctx context.Context, courseID int64, ids []string) error
	Health(ctx context.Context) error
}

// CreateCourseRequest is the input for a new course.
type CreateCourseRequest struct {
	Name        string
	Description string
}

// CreateUnitRequest is the input for a new unit. A nil ParentID creates a top-level unit.
type CreateUnitRequest struct {
	Name        string
	Description string
	ParentID    *int64
	Order       int
}

// UnitNode is a unit with its children, as shown in the course structure.
type UnitNode struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Level       int         `json:"level"`
	Order       int         `json:"order"`
	Children    []*UnitNode `json:"children"`
}

// CourseService manages courses and their unit structure.
type CourseService interface {
	CreateCourse(ctx context.Context, userID string, req CreateCourseRequest) (*storage.Course, error)
	ListCourses(ctx context.Context, userID string) ([]storage.Course, error)
	GetCourse(ctx context.Context, userID string, courseID int64) (*storage.Course, error)
	// DeleteCourse removes the course with everything stored under it. The
	// vector collection is dropped on a best-effort basis.
	DeleteCourse(ctx context.Context, userID string, courseID int64) error
	CreateUnit(ctx context.Context, userID string, courseID int64, req CreateUnitRequest) (*storage.Unit, error)
	Structure(ctx context.Context, userID string, courseID int64) ([]*UnitNode, error)
}

type courseService struct {
	courses storage.CourseStore
	units   storage.UnitStore
	index   CourseIndex
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses storage.CourseStore, units storage.UnitStore, index CourseIndex) CourseService {
	return &courseService{courses: courses, units: units, index: index}
}

// ownedCourse loads a course and checks that userID owns it.
func ownedCourse(ctx context.Context, courses storage.CourseStore, userID string, courseID int64) (*storage.Course, error) {
	course, err := courses.Get(ctx, courseID)
	if err != nil {
		return nil, storageError(err, "failed to get course")
	}
	if course.OwnerID != userID {
		return nil, ErrForbidden
	}
	return course, nil
}

func (s *courseService) CreateCourse(ctx context.Context, userID string, req CreateCourseRequest) (*storage.Course, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "cannot be empty"}
	}

	course := &storage.Course{OwnerID: userID, Name: name, Description: req.Description}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, WrapError(err, "failed to create course")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "course created", "course_id", course.ID, "name", course.Name)
	return course, nil
}

func (s *courseService) ListCourses(ctx context.Context, userID string) ([]storage.Course, error) {
	courses, err := s.courses.ListByOwner(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "failed to list courses")
	}
	return courses, nil
}

func (s *courseService) GetCourse(ctx context.Context, userID string, courseID int64) (*storage.Course, error) {
	return ownedCourse(ctx, s.courses, userID, courseID)
}

func (s *courseService) DeleteCourse(ctx context.Context, userID string, courseID int64) error {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return storageError(err, "failed to delete course")
	}
	if err := s.index.DeleteCollection(ctx, courseID); err != nil {
		logger.WarnContext(ctx, "failed to delete course collection", "course_id", courseID, "error", err)
	}
	logger.InfoContext(ctx, "course deleted", "course_id", courseID)
	return nil
}

func (s *courseService) CreateUnit(ctx context.Context, userID string, courseID int64, req CreateUnitRequest) (*storage.Unit, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "cannot be empty"}
	}

	level := 1
	if req.ParentID != nil {
		parent, err := s.units.Get(ctx, *req.ParentID)
		if err != nil {
			return nil, storageError(err, "failed to get parent unit")
		}
		if parent.CourseID != courseID {
			return nil, &ValidationError{Field: "parent_id", Message: "unit belongs to another course"}
		}
		level = parent.Level + 1
	}

	unit := &storage.Unit{
		CourseID:    courseID,
		ParentID:    req.ParentID,
		Name:        name,
		Description: req.Description,
		Order:       req.Order,
		Level:       level,
	}
	if err := s.units.Create(ctx, unit); err != nil {
		return nil, WrapError(err, "failed to create unit")
	}
	return unit, nil
}

func (s *courseService) Structure(ctx context.Context, userID string, courseID int64) ([]*UnitNode, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	units, err := s.units.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, WrapError(err, "failed to list units")
	}
	return buildTree(units), nil
}

// buildTree arranges units by parent. Units whose parent is missing become roots.
// Siblings are ordered by Order, then ID.
func buildTree(units []storage.Unit) []*UnitNode {
	nodes := make(map[int64]*UnitNode, len(units))
	for _, u := range units {
		nodes[u.ID] = &UnitNode{
			ID:          u.ID,
			Name:        u.Name,
			Description: u.Description,
			Level:       u.Level,
			Order:       u.Order,
			Children:    []*UnitNode{},
		}
	}

	roots := []*UnitNode{}
	for _, u := range units {
		node := nodes[u.ID]
		if u.ParentID != nil {
			if parent, ok := nodes[*u.ParentID]; ok && *u.ParentID != u.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*UnitNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Order != nodes[j].Order {
			return nodes[i].Order < nodes[j].Order
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
