// Package student contains all HTTP handlers the roster page calls.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like the roster.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (the roster)
//  2. Returns a function with the exact signature the router needs
//
// For example:
//
//	router.HandleFunc("POST /api/students", student.New(store))
//	//                                              ^^^^^^^^^^
//	//                         New(store) is called ONCE at startup.
//	//                         It returns a handler func which is called
//	//                         on EVERY incoming request.
//
// The handlers add no rules of their own: they decode, validate the
// shape of the input, call the roster, and translate its outcome.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aanand-mishra/students-roster/internal/roster"
	"github.com/aanand-mishra/students-roster/internal/types"
	"github.com/aanand-mishra/students-roster/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// Roster is the part of *roster.Store the handlers use.
type Roster interface {
	Add(fields types.StudentFields) (types.StudentRecord, error)
	BeginEdit(id int) (types.StudentRecord, error)
	Replace(id int, fields types.StudentFields) (types.StudentRecord, error)
	Remove(id int) error
	Get(id int) (types.StudentRecord, error)
	List() []types.StudentRecord
	Filter(searchTerm, courseFilter string) []types.StudentRecord
	Statistics() types.Statistics
	ExportCSV() (string, error)
	Now() time.Time
}

// Register wires every roster route onto router.
//
// Route table:
//
//	POST   /api/students            → add a student
//	GET    /api/students            → list / filter (?search=&course=)
//	GET    /api/students/{id}       → get one student
//	POST   /api/students/{id}/edit  → start editing (removes the record)
//	PUT    /api/students/{id}       → submit an edit
//	DELETE /api/students/{id}       → delete a student
//	GET    /api/statistics          → summary widgets
//	GET    /api/export              → CSV download
func Register(router *http.ServeMux, store Roster) {
	router.HandleFunc("POST /api/students", New(store))
	router.HandleFunc("GET /api/students", GetList(store))
	router.HandleFunc("GET /api/students/{id}", GetByID(store))
	router.HandleFunc("POST /api/students/{id}/edit", BeginEdit(store))
	router.HandleFunc("PUT /api/students/{id}", Update(store))
	router.HandleFunc("DELETE /api/students/{id}", Delete(store))
	router.HandleFunc("GET /api/statistics", Statistics(store))
	router.HandleFunc("GET /api/export", Export(store))
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON):
//
//	{ "firstName": "Ann", "lastName": "Lee", "email": "a@x.com",
//	  "phone": "555", "dateOfBirth": "2000-01-01", "course": "CS",
//	  "gpa": 3.9, "year": "2" }
//
// Success response (201 Created): the stored record, including its id.
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, or failed validation
//	409 Conflict     — another student already has this email
//	500 Internal     — the roster could not be persisted
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store Roster) http.HandlerFunc {
	validate := types.NewValidator()

	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		fields, ok := decodeFields(w, r, validate)
		if !ok {
			return
		}

		rec, err := store.Add(fields)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("student created", slog.Int("id", rec.ID))
		response.WriteJSON(w, http.StatusCreated, rec)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
//
// Query parameters (both optional):
//
//	search — case-insensitive match on name, email or course
//	course — exact course
//
// Returns an empty array [] (not null) when nothing matches; the page shows
// its empty-state placeholder in that case.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		course := r.URL.Query().Get("course")

		if search == "" && course == "" {
			response.WriteJSON(w, http.StatusOK, store.List())
			return
		}

		slog.Info("filtering students",
			slog.String("search", search),
			slog.String("course", course))
		response.WriteJSON(w, http.StatusOK, store.Filter(search, course))
	}
}

// GetByID handles GET /api/students/{id}
func GetByID(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		rec, err := store.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, rec)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// BeginEdit handles POST /api/students/{id}/edit
//
// Returns the record so the page can prefill its form. Unless draft edits
// are enabled the record is removed from the roster by this call; it comes
// back only when the form is submitted to PUT /api/students/{id} (or
// POST /api/students).
//
// Error responses:
//
//	404 Not Found — no student with this id
//
// ─────────────────────────────────────────────────────────────────────────────
func BeginEdit(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("editing a student", slog.Int("id", id))

		rec, err := store.BeginEdit(id)
		if err != nil {
			writeError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, rec)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
//
// Submits an edit. The old record (if still present) is replaced by a new
// one with a NEW id at the end of the roster.
//
// Success response (200 OK): the new record.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store Roster) http.HandlerFunc {
	validate := types.NewValidator()

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int("id", id))

		fields, ok := decodeFields(w, r, validate)
		if !ok {
			return
		}

		rec, err := store.Replace(id, fields)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("student updated", slog.Int("old_id", id), slog.Int("id", rec.ID))
		response.WriteJSON(w, http.StatusOK, rec)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
// The page asks the user to confirm before calling this. Deleting an id
// that does not exist still succeeds.
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int("id", id))

		if err := store.Remove(id); err != nil {
			writeError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// Statistics handles GET /api/statistics
func Statistics(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, store.Statistics())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Export handles GET /api/export
//
// Success response (200 OK): text/csv, offered as students_YYYY-MM-DD.csv.
//
// Error responses:
//
//	422 Unprocessable Entity — the roster is empty; no file is produced
//
// ─────────────────────────────────────────────────────────────────────────────
func Export(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("exporting students")

		body, err := store.ExportCSV()
		if err != nil {
			writeError(w, err)
			return
		}

		response.WriteCSV(w, roster.ExportFilename(store.Now()), body)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// pathID parses {id}. On failure it writes the 400 itself.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}

// decodeFields reads and validates a StudentFields body. On failure it
// writes the 400 itself.
func decodeFields(w http.ResponseWriter, r *http.Request, validate *validator.Validate) (types.StudentFields, bool) {
	var fields types.StudentFields

	err := json.NewDecoder(r.Body).Decode(&fields)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return fields, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return fields, false
	}

	fields = fields.Normalized()
	if err := validate.Struct(fields); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return fields, false
	}

	return fields, true
}

// writeError maps a roster outcome to a status code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, roster.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, roster.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, roster.ErrEmptyExport):
		status = http.StatusUnprocessableEntity
	default:
		slog.Error("roster operation failed", slog.String("error", err.Error()))
	}

	response.WriteJSON(w, status, response.GeneralError(err))
}
