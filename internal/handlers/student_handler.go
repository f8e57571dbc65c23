package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/service"
)

const dateLayout = "2006-01-02"

// StudentHandler handles roster, assignment and attendance requests
type StudentHandler struct {
	studentService    *service.StudentService
	catalogService    *service.CatalogService
	assignmentService *service.AssignmentService
	attendanceService *service.AttendanceService
	log               *zap.Logger
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(
	studentService *service.StudentService,
	catalogService *service.CatalogService,
	assignmentService *service.AssignmentService,
	attendanceService *service.AttendanceService,
	log *zap.Logger,
) *StudentHandler {
	return &StudentHandler{
		studentService:    studentService,
		catalogService:    catalogService,
		assignmentService: assignmentService,
		attendanceService: attendanceService,
		log:               log,
	}
}

type assignRequest struct {
	BookID int64 `json:"bookId"`
}

type attendanceRequest struct {
	Present bool `json:"present"`
}

// ListStudents returns the acting teacher's roster
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentService.ListStudents(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, students)
}

// CreateStudent adds a student to the acting teacher's roster
func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var in service.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	student, err := h.studentService.CreateStudent(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, student)
}

// GetStudent returns a student with every assigned book and its song states
func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	detail, err := h.studentService.StudentDetail(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

// UpdateStudent replaces a student's profile fields
func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in service.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	student, err := h.studentService.UpdateStudent(r.Context(), studentID, in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, student)
}

// DeleteStudent removes a student and everything recorded for them
func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.studentService.DeleteStudent(r.Context(), studentID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailableBooks lists catalog books the student does not hold yet
func (h *StudentHandler) AvailableBooks(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	books, err := h.catalogService.AvailableBooksForStudent(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, books)
}

// ListAssignments returns the student's book assignments
func (h *StudentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	assignments, err := h.assignmentService.StudentAssignments(r.Context(), studentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, assignments)
}

// AssignBook gives the student a book and creates its song instances
func (h *StudentHandler) AssignBook(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in assignRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	assignment, err := h.assignmentService.AssignBook(r.Context(), studentID, in.BookID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, assignment)
}

// RemoveAssignment takes a book away from a student
func (h *StudentHandler) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.assignmentService.RemoveBook(r.Context(), assignmentID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleGraduation flips an assignment's graduated flag
func (h *StudentHandler) ToggleGraduation(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	assignment, err := h.assignmentService.ToggleGraduation(r.Context(), assignmentID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, assignment)
}

// MarkAttendance records presence or absence for the date in the path
func (h *StudentHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}
	date, err := time.Parse(dateLayout, r.PathValue("date"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid date"})
		return
	}

	var in attendanceRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	record, err := h.attendanceService.MarkAttendance(r.Context(), studentID, date, in.Present)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

// UnmarkAttendance clears the record for the date in the path
func (h *StudentHandler) UnmarkAttendance(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}
	date, err := time.Parse(dateLayout, r.PathValue("date"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid date"})
		return
	}

	if err := h.attendanceService.UnmarkAttendance(r.Context(), studentID, date); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttendanceReport returns the month given by ?year=&month= for the acting teacher
func (h *StudentHandler) AttendanceReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid year"})
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid month"})
		return
	}

	entries, err := h.attendanceService.MonthlyReport(r.Context(), year, time.Month(month))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
