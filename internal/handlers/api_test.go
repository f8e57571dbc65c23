package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"suzukitracker/internal/database/dbtest"
	"suzukitracker/internal/metrics"
	"suzukitracker/internal/models"
	"suzukitracker/internal/security"
	"suzukitracker/internal/service"
)

type nopMailer struct{}

func (nopMailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	return nil
}

type testAPI struct {
	mux     *http.ServeMux
	startup *StartupStatus
}

func newTestAPI(t *testing.T, loginBurst int) *testAPI {
	t.Helper()
	db := dbtest.New(t)
	log := zap.NewNop()
	deps := service.Deps{
		DB:      db,
		Guard:   service.NewGuard(false),
		Log:     log,
		Metrics: metrics.NewRecorder(),
	}

	authService := service.NewAuthService(deps, security.NewSessionSigner("test-secret", time.Hour), nopMailer{}, time.Hour)
	catalogService := service.NewCatalogService(deps)
	startup := NewStartupStatus()

	router := &Router{
		Middleware: NewMiddleware(authService, security.NewRateLimiter(loginBurst, time.Minute), log),
		Auth:       NewAuthHandler(authService, log),
		Catalog:    NewCatalogHandler(catalogService, log),
		Students: NewStudentHandler(
			service.NewStudentService(deps),
			catalogService,
			service.NewAssignmentService(deps),
			service.NewAttendanceService(deps),
			log,
		),
		Progress: NewProgressHandler(service.NewProgressService(deps), log),
		Startup:  startup,
		Metrics:  deps.Metrics.Handler(),
	}
	return &testAPI{mux: router.Handler(), startup: startup}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

// register signs up a teacher and returns its session token
func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", service.TeacherInput{
		Email: email, Password: "correct horse", Name: "Teacher",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session service.Session
	decode(t, rec, &session)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, 100)

	rec := api.do(t, http.MethodPost, "/api/auth/register", "", service.TeacherInput{
		Email: "maria@example.com", Password: "correct horse", Name: "Maria",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, security.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, rec.Body.String(), "password", "hash never leaves the server")

	var session service.Session
	decode(t, rec, &session)

	rec = api.do(t, http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.Teacher
	decode(t, rec, &me)
	assert.Equal(t, "maria@example.com", me.Email)

	// the cookie works as well as the bearer header
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	cookieRec := httptest.NewRecorder()
	api.mux.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/auth/me", "", nil).Code)

	rec = api.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

	rec = api.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "maria@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "MARIA@example.com", Password: "correct horse"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/register", "", service.TeacherInput{
		Email: "maria@example.com", Password: "correct horse", Name: "Maria",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusAccepted,
		api.do(t, http.MethodPost, "/api/auth/password-reset", "", resetRequest{Email: "nobody@example.com"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", resetConfirmRequest{Token: "bogus", Password: "new password"}).Code)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func TestStudentBookFlow(t *testing.T) {
	api := newTestAPI(t, 100)
	token := api.register(t, "maria@example.com")

	rec := api.do(t, http.MethodPost, "/api/books", token, models.NewBook{
		Title:  "Suzuki Violin School",
		Number: 1,
		Songs:  []models.NewSong{{Title: "Twinkle"}, {Title: "Lightly Row"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book models.BookWithSongs
	decode(t, rec, &book)
	require.Len(t, book.Songs, 2)

	rec = api.do(t, http.MethodPost, "/api/books", token, models.NewBook{Title: "Duplicate", Number: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/books/next-number", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next numberResponse
	decode(t, rec, &next)
	assert.Equal(t, 2, next.Number)

	rec = api.do(t, http.MethodGet, "/api/books/number-available?number=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var avail numberResponse
	decode(t, rec, &avail)
	assert.False(t, avail.Available)

	rec = api.do(t, http.MethodPost, "/api/students", token, service.StudentInput{Name: "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ana models.Student
	decode(t, rec, &ana)

	studentPath := fmt.Sprintf("/api/students/%d", ana.ID)
	rec = api.do(t, http.MethodPost, studentPath+"/books", token, assignRequest{BookID: book.Book.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var assignment models.BookAssignment
	decode(t, rec, &assignment)

	assert.Equal(t, http.StatusConflict,
		api.do(t, http.MethodPost, studentPath+"/books", token, assignRequest{BookID: book.Book.ID}).Code)

	rec = api.do(t, http.MethodGet, studentPath+"/available-books", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var available []models.BookTemplate
	decode(t, rec, &available)
	assert.Empty(t, available)

	rec = api.do(t, http.MethodPost, "/api/student-songs/toggle", token, toggleRequest{
		SongRef: service.SongRef{StudentID: ana.ID, SongTemplateID: book.Songs[0].ID},
		Field:   "both",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome service.ToggleOutcome
	decode(t, rec, &outcome)
	assert.True(t, outcome.NewValue)
	assert.Equal(t, models.Flags{Left: true, Right: true, Both: true}, outcome.Flags)

	rec = api.do(t, http.MethodPost, "/api/student-songs/toggle", token, toggleRequest{
		SongRef: service.SongRef{StudentSongID: outcome.StudentSongID},
		Field:   "feet",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	progressPath := fmt.Sprintf("/api/student-songs/%d/progress", outcome.StudentSongID)
	rec = api.do(t, http.MethodPost, progressPath, token, progressRequest{Left: 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPost, progressPath, token, progressRequest{Left: 40, Right: 50, Both: 30, Note: "first week"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, progressPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []models.ProgressNote
	decode(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, 40, notes[0].LeftHand)

	rec = api.do(t, http.MethodGet, studentPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.StudentDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Assignments, 1)
	require.Len(t, detail.Assignments[0].Songs, 2)

	bookPath := fmt.Sprintf("/api/books/%d", book.Book.ID)
	rec = api.do(t, http.MethodDelete, bookPath, token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict errorResponse
	decode(t, rec, &conflict)
	assert.Equal(t, 1, conflict.Count)

	assignmentPath := fmt.Sprintf("/api/assignments/%d", assignment.ID)
	rec = api.do(t, http.MethodPost, assignmentPath+"/graduation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &assignment)
	assert.True(t, assignment.IsGraduated)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, assignmentPath, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, assignmentPath, token, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, bookPath, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, bookPath, token, nil).Code)
}

func TestAttendanceEndpoints(t *testing.T) {
	api := newTestAPI(t, 100)
	token := api.register(t, "maria@example.com")

	rec := api.do(t, http.MethodPost, "/api/students", token, service.StudentInput{Name: "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ana models.Student
	decode(t, rec, &ana)

	path := fmt.Sprintf("/api/students/%d/attendance/2026-03-05", ana.ID)
	rec = api.do(t, http.MethodPut, path, token, attendanceRequest{Present: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var record models.Attendance
	decode(t, rec, &record)
	assert.True(t, record.Present)
	assert.True(t, record.Date.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))

	rec = api.do(t, http.MethodPut, fmt.Sprintf("/api/students/%d/attendance/05-03-2026", ana.ID), token, attendanceRequest{Present: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/attendance?year=2026&month=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report []models.AttendanceEntry
	decode(t, rec, &report)
	require.Len(t, report, 1)
	assert.Equal(t, "Ana", report[0].StudentName)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/attendance?year=2026&month=13", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/attendance?year=2026", token, nil).Code)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, path, token, nil).Code)
	rec = api.do(t, http.MethodGet, "/api/attendance?year=2026&month=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &report)
	assert.Empty(t, report)
}

func TestCrossTeacherAccess(t *testing.T) {
	api := newTestAPI(t, 100)
	owner := api.register(t, "owner@example.com")
	other := api.register(t, "other@example.com")

	rec := api.do(t, http.MethodPost, "/api/students", owner, service.StudentInput{Name: "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ana models.Student
	decode(t, rec, &ana)

	path := fmt.Sprintf("/api/students/%d", ana.ID)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, path, owner, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodDelete, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/students/9999", other, nil).Code)

	rec = api.do(t, http.MethodGet, "/api/students", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []models.StudentSummary
	decode(t, rec, &roster)
	assert.Empty(t, roster)
}

func TestBadRequests(t *testing.T) {
	api := newTestAPI(t, 100)
	token := api.register(t, "maria@example.com")

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/students/abc", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/books/0", token, nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/students", bytes.NewBufferString(`{"name":"Ana","age":7}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = api.do(t, http.MethodPost, "/api/students", token, service.StudentInput{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "name is required")
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t, 2)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := api.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, 100)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	api.startup.CompleteStep(StepDatabase)
	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	var status startupResponse
	decode(t, rec, &status)
	assert.Equal(t, 25, status.Progress)
	assert.False(t, status.Ready)

	api.startup.MarkReady()
	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	assert.True(t, status.Ready)
	assert.Equal(t, 100, status.Progress)

	api.register(t, "maria@example.com")
	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tracker_operations_total")
}

func TestLoggingMiddleware(t *testing.T) {
	handler := Logging(zap.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
