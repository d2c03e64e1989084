package handlers

import (
	"net/http"
	"time"

	"coursetutor/internal/contextutil"
	"coursetutor/internal/service"
	"coursetutor/internal/storage"
)

// CourseHandler handles HTTP requests for courses and their units.
type CourseHandler struct {
	courseService service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// CreateCourseRequest represents the HTTP request payload for a new course.
//
// swagger:model CreateCourseRequest
type CreateCourseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CourseResponse is a course as returned by the API.
//
// swagger:model CourseResponse
type CourseResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateUnitRequest represents the HTTP request payload for a new unit.
type CreateUnitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Order       int    `json:"order"`
}

// UnitResponse is a unit as returned by the API.
type UnitResponse struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Level       int    `json:"level"`
}

// StructureResponse is a course's unit tree.
type StructureResponse struct {
	CourseID int64               `json:"course_id"`
	Units    []*service.UnitNode `json:"units"`
}

func courseResponse(c *storage.Course) CourseResponse {
	return CourseResponse{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

// Create handles POST /api/courses.
//
// swagger:route POST /api/courses courses createCourse
//
// Create a course owned by the caller.
//
// responses:
//
//	'201':
//	  schema:
//	    "$ref": "#/definitions/CourseResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req CreateCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.courseService.CreateCourse(ctx, userID, service.CreateCourseRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create course")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, courseResponse(course))
}

// List handles GET /api/courses.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	courses, err := h.courseService.ListCourses(ctx, userID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list courses")
		return
	}

	resp := make([]CourseResponse, 0, len(courses))
	for i := range courses {
		resp = append(resp, courseResponse(&courses[i]))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Get handles GET /api/courses/{courseID}.
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.GetCourse(ctx, userID, courseID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get course")
		return
	}
	writeJSON(ctx, w, http.StatusOK, courseResponse(course))
}

// Delete handles DELETE /api/courses/{courseID}.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.courseService.DeleteCourse(ctx, userID, courseID); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete course")
		return
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "course deleted via API", "course_id", courseID)
	w.WriteHeader(http.StatusNoContent)
}

// CreateUnit handles POST /api/courses/{courseID}/units.
func (h *CourseHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CreateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	unit, err := h.courseService.CreateUnit(ctx, userID, courseID, service.CreateUnitRequest{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create unit")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, UnitResponse{
		ID:          unit.ID,
		CourseID:    unit.CourseID,
		ParentID:    unit.ParentID,
		Name:        unit.Name,
		Description: unit.Description,
		Order:       unit.Order,
		Level:       unit.Level,
	})
}

// Structure handles GET /api/courses/{courseID}/structure.
func (h *CourseHandler) Structure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	units, err := h.courseService.Structure(ctx, userID, courseID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get course structure")
		return
	}
	writeJSON(ctx, w, http.StatusOK, StructureResponse{CourseID: courseID, Units: units})
}
