package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"coursetutor/internal/service"
	"coursetutor/internal/service/mocks"
	"coursetutor/internal/storage"
)

func TestCourseHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		mockSetup  func(*mocks.MockCourseService)
		wantStatus int
	}{
		{
			name: "created",
			body: CreateCourseRequest{Name: "Biology", Description: "Intro"},
			mockSetup: func(m *mocks.MockCourseService) {
				m.EXPECT().
					CreateCourse(gomock.Any(), "u1", service.CreateCourseRequest{Name: "Biology", Description: "Intro"}).
					Return(&storage.Course{ID: 1, OwnerID: "u1", Name: "Biology", Description: "Intro"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "empty name",
			body: CreateCourseRequest{},
			mockSetup: func(m *mocks.MockCourseService) {
				m.EXPECT().CreateCourse(gomock.Any(), "u1", gomock.Any()).
					Return(nil, &service.ValidationError{Field: "name", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid JSON body",
			body:       "{",
			mockSetup:  func(m *mocks.MockCourseService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCourseService(ctrl)
			tt.mockSetup(m)

			w := httptest.NewRecorder()
			NewCourseHandler(m).Create(w, newRequest(http.MethodPost, "/api/courses", tt.body, "u1", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Create() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCourseHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		courseID   string
		err        error
		wantStatus int
	}{
		{"found", "1", nil, http.StatusOK},
		{"other owner", "1", service.ErrForbidden, http.StatusForbidden},
		{"missing", "1", service.ErrNotFound, http.StatusNotFound},
		{"bad id", "zero", nil, http.StatusBadRequest},
		{"negative id", "-3", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCourseService(ctrl)
			if tt.wantStatus != http.StatusBadRequest {
				var course *storage.Course
				if tt.err == nil {
					course = &storage.Course{ID: 1, Name: "Biology"}
				}
				m.EXPECT().GetCourse(gomock.Any(), "u1", int64(1)).Return(course, tt.err)
			}

			w := httptest.NewRecorder()
			req := newRequest(http.MethodGet, "/api/courses/"+tt.courseID, nil, "u1", map[string]string{"courseID": tt.courseID})
			NewCourseHandler(m).Get(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Get() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if w.Code == http.StatusOK {
				resp, err := decodeBody[CourseResponse](w)
				if err != nil || resp.Name != "Biology" {
					t.Errorf("Get() body = %+v, %v", resp, err)
				}
			}
		})
	}
}

func TestCourseHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCourseService(ctrl)
	m.EXPECT().DeleteCourse(gomock.Any(), "u1", int64(2)).Return(nil)
	m.EXPECT().DeleteCourse(gomock.Any(), "u1", int64(3)).Return(errors.New("disk full"))

	h := NewCourseHandler(m)

	w := httptest.NewRecorder()
	h.Delete(w, newRequest(http.MethodDelete, "/api/courses/2", nil, "u1", map[string]string{"courseID": "2"}))
	if w.Code != http.StatusNoContent {
		t.Errorf("Delete() status = %v, want %v", w.Code, http.StatusNoContent)
	}

	w = httptest.NewRecorder()
	h.Delete(w, newRequest(http.MethodDelete, "/api/courses/3", nil, "u1", map[string]string{"courseID": "3"}))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Delete() status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}

func TestCourseHandler_CreateUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCourseService(ctrl)
	parentID := int64(5)
	m.EXPECT().
		CreateUnit(gomock.Any(), "u1", int64(1), service.CreateUnitRequest{Name: "Membranes", ParentID: &parentID, Order: 2}).
		Return(&storage.Unit{ID: 8, CourseID: 1, ParentID: &parentID, Name: "Membranes", Order: 2, Level: 2}, nil)

	w := httptest.NewRecorder()
	body := CreateUnitRequest{Name: "Membranes", ParentID: &parentID, Order: 2}
	NewCourseHandler(m).CreateUnit(w, newRequest(http.MethodPost, "/api/courses/1/units", body, "u1", map[string]string{"courseID": "1"}))

	if w.Code != http.StatusCreated {
		t.Fatalf("CreateUnit() status = %v, want %v", w.Code, http.StatusCreated)
	}
	resp, err := decodeBody[UnitResponse](w)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != 8 || resp.Level != 2 || resp.ParentID == nil || *resp.ParentID != 5 {
		t.Errorf("CreateUnit() body = %+v", resp)
	}
}

func TestCourseHandler_Structure(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCourseService(ctrl)
	m.EXPECT().Structure(gomock.Any(), "u1", int64(1)).Return([]*service.UnitNode{
		{ID: 3, Name: "Cells", Level: 1, Children: []*service.UnitNode{{ID: 5, Name: "Membranes", Level: 2, Children: []*service.UnitNode{}}}},
	}, nil)

	w := httptest.NewRecorder()
	NewCourseHandler(m).Structure(w, newRequest(http.MethodGet, "/api/courses/1/structure", nil, "u1", map[string]string{"courseID": "1"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Structure() status = %v, want %v", w.Code, http.StatusOK)
	}
	resp, err := decodeBody[StructureResponse](w)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CourseID != 1 || len(resp.Units) != 1 || len(resp.Units[0].Children) != 1 || resp.Units[0].Children[0].Name != "Membranes" {
		t.Errorf("Structure() body = %+v", resp)
	}
}

func TestCourseHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCourseService(ctrl)
	m.EXPECT().ListCourses(gomock.Any(), "u1").Return(nil, nil)

	w := httptest.NewRecorder()
	NewCourseHandler(m).List(w, newRequest(http.MethodGet, "/api/courses", nil, "u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %v, want %v", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("List() body = %q, want empty array", got)
	}
}
