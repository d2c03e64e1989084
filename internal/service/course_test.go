package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"coursetutor/internal/service"
	"coursetutor/internal/service/mocks"
	"coursetutor/internal/storage"
	storage_mocks "coursetutor/internal/storage/mocks"
)

type courseFixture struct {
	courses *storage_mocks.MockCourseStore
	units   *storage_mocks.MockUnitStore
	index   *mocks.MockCourseIndex
	svc     service.CourseService
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &courseFixture{
		courses: storage_mocks.NewMockCourseStore(ctrl),
		units:   storage_mocks.NewMockUnitStore(ctrl),
		index:   mocks.NewMockCourseIndex(ctrl),
	}
	f.svc = service.NewCourseService(f.courses, f.units, f.index)
	return f
}

func TestCourseService_CreateCourse(t *testing.T) {
	f := newCourseFixture(t)

	_, err := f.svc.CreateCourse(testContext(), "u1", service.CreateCourseRequest{Name: "   "})
	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "name" {
		t.Errorf("CreateCourse(blank) error = %v, want name validation error", err)
	}

	f.courses.EXPECT().Create(gomock.Any(), &storage.Course{OwnerID: "u1", Name: "Biology", Description: "Intro"}).
		DoAndReturn(func(_ context.Context, c *storage.Course) error {
			c.ID = 1
			return nil
		})
	course, err := f.svc.CreateCourse(testContext(), "u1", service.CreateCourseRequest{Name: " Biology ", Description: "Intro"})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if course.ID != 1 {
		t.Errorf("CreateCourse() ID = %d, want 1", course.ID)
	}
}

func TestCourseService_GetCourse(t *testing.T) {
	tests := []struct {
		name    string
		course  *storage.Course
		err     error
		wantErr error
	}{
		{"owned", biology, nil, nil},
		{"other owner", &storage.Course{ID: 1, OwnerID: "u2"}, nil, service.ErrForbidden},
		{"missing", nil, storage.ErrNotFound, service.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCourseFixture(t)
			f.courses.EXPECT().Get(gomock.Any(), int64(1)).Return(tt.course, tt.err)

			_, err := f.svc.GetCourse(testContext(), "u1", 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetCourse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCourseService_DeleteCourse(t *testing.T) {
	t.Run("collection delete is best effort", func(t *testing.T) {
		f := newCourseFixture(t)
		gomock.InOrder(
			f.courses.EXPECT().Get(gomock.Any(), int64(1)).Return(biology, nil),
			f.courses.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil),
			f.index.EXPECT().DeleteCollection(gomock.Any(), int64(1)).Return(errors.New("qdrant down")),
		)
		if err := f.svc.DeleteCourse(testContext(), "u1", 1); err != nil {
			t.Errorf("DeleteCourse() error = %v", err)
		}
	})

	t.Run("forbidden deletes nothing", func(t *testing.T) {
		f := newCourseFixture(t)
		f.courses.EXPECT().Get(gomock.Any(), int64(1)).Return(&storage.Course{ID: 1, OwnerID: "u2"}, nil)
		if err := f.svc.DeleteCourse(testContext(), "u1", 1); !errors.Is(err, service.ErrForbidden) {
			t.Errorf("DeleteCourse() error = %v, want ErrForbidden", err)
		}
	})
}

func TestCourseService_CreateUnit(t *testing.T) {
	parentID := int64(5)

	tests := []struct {
		name      string
		req       service.CreateUnitRequest
		parent    *storage.Unit
		wantLevel int
		wantErr   bool
	}{
		{name: "top level", req: service.CreateUnitRequest{Name: "Cells"}, wantLevel: 1},
		{
			name:      "nested",
			req:       service.CreateUnitRequest{Name: "Membranes", ParentID: &parentID, Order: 2},
			parent:    &storage.Unit{ID: 5, CourseID: 1, Level: 1},
			wantLevel: 2,
		},
		{
			name:    "parent in another course",
			req:     service.CreateUnitRequest{Name: "Membranes", ParentID: &parentID},
			parent:  &storage.Unit{ID: 5, CourseID: 2, Level: 1},
			wantErr: true,
		},
		{name: "blank name", req: service.CreateUnitRequest{Name: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCourseFixture(t)
			f.courses.EXPECT().Get(gomock.Any(), int64(1)).Return(biology, nil)
			if tt.parent != nil {
				f.units.EXPECT().Get(gomock.Any(), parentID).Return(tt.parent, nil)
			}
			if !tt.wantErr {
				f.units.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *storage.Unit) error {
					if u.Level != tt.wantLevel || u.CourseID != 1 || u.Order != tt.req.Order {
						t.Errorf("Create() unit = %+v", u)
					}
					return nil
				})
			}

			_, err := f.svc.CreateUnit(testContext(), "u1", 1, tt.req)
			var validationErr *service.ValidationError
			if tt.wantErr != errors.As(err, &validationErr) {
				t.Errorf("CreateUnit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCourseService_Structure(t *testing.T) {
	f := newCourseFixture(t)
	id := func(v int64) *int64 { return &v }

	f.courses.EXPECT().Get(gomock.Any(), int64(1)).Return(biology, nil)
	f.units.EXPECT().ListByCourse(gomock.Any(), int64(1)).Return([]storage.Unit{
		{ID: 1, Name: "Biology - Main", Level: 0},
		{ID: 4, Name: "Genetics", Level: 1, Order: 2},
		{ID: 3, Name: "Cells", Level: 1, Order: 1},
		{ID: 6, Name: "Mitosis", ParentID: id(3), Level: 2, Order: 1},
		{ID: 5, Name: "Membranes", ParentID: id(3), Level: 2, Order: 0},
		{ID: 7, Name: "Orphan", ParentID: id(99), Level: 2},
	}, nil)

	roots, err := f.svc.Structure(testContext(), "u1", 1)
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}

	var names []string
	for _, r := range roots {
		names = append(names, r.Name)
	}
	want := []string{"Biology - Main", "Orphan", "Cells", "Genetics"}
	if len(names) != len(want) {
		t.Fatalf("roots = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("roots = %v, want %v", names, want)
		}
	}

	cells := roots[2]
	if len(cells.Children) != 2 || cells.Children[0].Name != "Membranes" || cells.Children[1].Name != "Mitosis" {
		t.Errorf("Cells children = %+v", cells.Children)
	}
	if roots[0].Children == nil {
		t.Error("leaf Children should be empty, not nil")
	}
}
