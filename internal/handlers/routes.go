package handlers

import (
	"net/http"
)

// Router bundles the handlers served by the API
type Router struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Catalog    *CatalogHandler
	Students   *StudentHandler
	Progress   *ProgressHandler
	Startup    *StartupStatus
	Metrics    http.Handler
}

// Handler registers every route on a new mux
func (rt *Router) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	m := rt.Middleware
	auth := m.RequireAuth

	mux.HandleFunc("GET /healthz", rt.Startup.Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	// Public routes
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", rt.Auth.Logout)
	mux.HandleFunc("POST /api/auth/password-reset", m.RateLimit(rt.Auth.RequestPasswordReset))
	mux.HandleFunc("POST /api/auth/password-reset/confirm", m.RateLimit(rt.Auth.ResetPassword))
	mux.HandleFunc("GET /api/auth/me", auth(rt.Auth.Me))

	// Catalog routes
	mux.HandleFunc("GET /api/books", auth(rt.Catalog.ListBooks))
	mux.HandleFunc("POST /api/books", auth(rt.Catalog.CreateBook))
	mux.HandleFunc("GET /api/books/next-number", auth(rt.Catalog.NextNumber))
	mux.HandleFunc("GET /api/books/number-available", auth(rt.Catalog.NumberAvailable))
	mux.HandleFunc("GET /api/books/{id}", auth(rt.Catalog.GetBook))
	mux.HandleFunc("PATCH /api/books/{id}", auth(rt.Catalog.UpdateBook))
	mux.HandleFunc("DELETE /api/books/{id}", auth(rt.Catalog.DeleteBook))
	mux.HandleFunc("POST /api/books/{id}/songs", auth(rt.Catalog.AddSong))
	mux.HandleFunc("POST /api/books/{id}/songs/resequence", auth(rt.Catalog.ResequenceSongs))
	mux.HandleFunc("PUT /api/books/{id}/songs/order", auth(rt.Catalog.ReorderSongs))
	mux.HandleFunc("PATCH /api/songs/{id}", auth(rt.Catalog.UpdateSong))
	mux.HandleFunc("DELETE /api/songs/{id}", auth(rt.Catalog.DeleteSong))

	// Student routes
	mux.HandleFunc("GET /api/students", auth(rt.Students.ListStudents))
	mux.HandleFunc("POST /api/students", auth(rt.Students.CreateStudent))
	mux.HandleFunc("GET /api/students/{id}", auth(rt.Students.GetStudent))
	mux.HandleFunc("PUT /api/students/{id}", auth(rt.Students.UpdateStudent))
	mux.HandleFunc("DELETE /api/students/{id}", auth(rt.Students.DeleteStudent))
	mux.HandleFunc("GET /api/students/{id}/available-books", auth(rt.Students.AvailableBooks))
	mux.HandleFunc("GET /api/students/{id}/books", auth(rt.Students.ListAssignments))
	mux.HandleFunc("POST /api/students/{id}/books", auth(rt.Students.AssignBook))
	mux.HandleFunc("PUT /api/students/{id}/attendance/{date}", auth(rt.Students.MarkAttendance))
	mux.HandleFunc("DELETE /api/students/{id}/attendance/{date}", auth(rt.Students.UnmarkAttendance))
	mux.HandleFunc("GET /api/attendance", auth(rt.Students.AttendanceReport))

	// Assignment routes
	mux.HandleFunc("DELETE /api/assignments/{id}", auth(rt.Students.RemoveAssignment))
	mux.HandleFunc("POST /api/assignments/{id}/graduation", auth(rt.Students.ToggleGraduation))

	// Progress routes
	mux.HandleFunc("POST /api/student-songs/toggle", auth(rt.Progress.ToggleFlag))
	mux.HandleFunc("GET /api/student-songs/{id}", auth(rt.Progress.GetStudentSong))
	mux.HandleFunc("PATCH /api/student-songs/{id}", auth(rt.Progress.UpdateDetails))
	mux.HandleFunc("PUT /api/student-songs/{id}/media/{kind}", auth(rt.Progress.SetMedia))
	mux.HandleFunc("GET /api/student-songs/{id}/progress", auth(rt.Progress.ListProgress))
	mux.HandleFunc("POST /api/student-songs/{id}/progress", auth(rt.Progress.RecordProgress))
	mux.HandleFunc("DELETE /api/progress/{id}", auth(rt.Progress.DeleteProgress))

	return mux
}
