package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coursetutor/internal/handlers"
	"coursetutor/internal/indexer"
	"coursetutor/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	CourseService   service.CourseService
	DocumentService service.DocumentService
	ChatService     service.ChatService
	HealthChecks    map[string]handlers.HealthChecker
	UploadLimits    indexer.Limits
	CORSOrigins     []string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.CORSOrigins))

	courseHandler := handlers.NewCourseHandler(deps.CourseService)
	documentHandler := handlers.NewDocumentHandler(deps.DocumentService, deps.UploadLimits)
	chatHandler := handlers.NewChatHandler(deps.ChatService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.HealthChecks))

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Route("/courses", func(r chi.Router) {
				r.Post("/", courseHandler.Create)
				r.Get("/", courseHandler.List)
				r.Route("/{courseID}", func(r chi.Router) {
					r.Get("/", courseHandler.Get)
					r.Delete("/", courseHandler.Delete)
					r.Post("/units", courseHandler.CreateUnit)
					r.Get("/structure", courseHandler.Structure)
					r.Post("/upload", documentHandler.Upload)
					r.Get("/documents", documentHandler.List)
					r.Delete("/documents/{fileID}", documentHandler.Delete)
				})
			})

			r.Route("/processing/{courseID}", func(r chi.Router) {
				r.Get("/status", documentHandler.ProcessingStatus)
				r.Get("/file/{fileID}/status", documentHandler.FileStatus)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/session", chatHandler.CreateSession)
				r.Post("/message", chatHandler.SendMessage)
				r.Post("/message/stream", chatHandler.StreamMessage)
				r.Get("/sessions", chatHandler.ListSessions)
				r.Get("/sessions/{sessionID}/messages", chatHandler.ListMessages)
			})
		})
	})

	return r
}
