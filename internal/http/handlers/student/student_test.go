package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aanand-mishra/students-roster/internal/roster"
	"github.com/aanand-mishra/students-roster/internal/storage/memory"
	"github.com/aanand-mishra/students-roster/internal/types"
	"github.com/aanand-mishra/students-roster/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annJSON = `{"firstName":"Ann","lastName":"Lee","email":"a@x.com","phone":"555","dateOfBirth":"2000-01-01","course":"CS","gpa":3.9,"year":"2"}`
const bobJSON = `{"firstName":"Bob","lastName":"Ray","email":"b@x.com","phone":"","dateOfBirth":"2001-05-05","course":"Math","gpa":3.0,"year":"1"}`

type testServer struct {
	router *http.ServeMux
	kv     *memory.Memory
	store  *roster.Store
}

func newTestServer(t *testing.T, opts ...roster.Option) *testServer {
	t.Helper()
	kv := memory.New()
	opts = append([]roster.Option{
		roster.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		roster.WithClock(func() time.Time { return time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC) }),
	}, opts...)
	store := roster.New(kv, opts...)

	router := http.NewServeMux()
	Register(router, store)
	return &testServer{router: router, kv: kv, store: store}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/students", annJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[types.StudentRecord](t, rec)
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, "2000-01-01", got.DateOfBirth.String())
}

func TestCreate_TrimsBeforeValidating(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/students",
		`{"firstName":" Ann ","lastName":"Lee","email":"  a@x.com ","dateOfBirth":"2000-01-01","course":"CS","gpa":3.9,"year":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[types.StudentRecord](t, rec)
	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/students", annJSON).Code)

	rec := s.do(http.MethodPost, "/api/students", annJSON)

	assert.Equal(t, http.StatusConflict, rec.Code)
	got := decode[response.Response](t, rec)
	assert.Equal(t, roster.ErrDuplicateEmail.Error(), got.Error)
	assert.Len(t, s.store.List(), 1)
}

func TestCreate_BadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "empty body", body: "", wantErr: "request body is empty"},
		{name: "malformed json", body: `{"firstName":`},
		{name: "bad date", body: `{"firstName":"Ann","lastName":"Lee","email":"a@x.com","dateOfBirth":"1/1/2000","course":"CS","year":"2"}`},
		{name: "missing fields", body: `{"firstName":"Ann"}`, wantErr: "field LastName is required"},
		{name: "bad email", body: `{"firstName":"Ann","lastName":"Lee","email":"nope","dateOfBirth":"2000-01-01","course":"CS","year":"2"}`, wantErr: "field Email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/students", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			got := decode[response.Response](t, rec)
			assert.Equal(t, response.StatusError, got.Status)
			if tt.wantErr != "" {
				assert.Contains(t, got.Error, tt.wantErr)
			}
		})
	}

	assert.Empty(t, s.store.List())
}

func TestList_AndFilter(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	s.do(http.MethodPost, "/api/students", annJSON)
	s.do(http.MethodPost, "/api/students", bobJSON)

	all := decode[[]types.StudentRecord](t, s.do(http.MethodGet, "/api/students", ""))
	assert.Len(t, all, 2)

	filtered := decode[[]types.StudentRecord](t, s.do(http.MethodGet, "/api/students?search=RAY", ""))
	require.Len(t, filtered, 1)
	assert.Equal(t, "Bob", filtered[0].FirstName)

	byCourse := decode[[]types.StudentRecord](t, s.do(http.MethodGet, "/api/students?course=CS", ""))
	require.Len(t, byCourse, 1)
	assert.Equal(t, "Ann", byCourse[0].FirstName)

	none := s.do(http.MethodGet, "/api/students?search=zzz", "")
	assert.Equal(t, "[]\n", none.Body.String())
}

func TestGetByID(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/students", annJSON)

	rec := s.do(http.MethodGet, "/api/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decode[types.StudentRecord](t, rec).FirstName)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/students/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/students/abc", "").Code)
}

func TestEditFlow(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/students", annJSON)
	s.do(http.MethodPost, "/api/students", bobJSON)

	rec := s.do(http.MethodPost, "/api/students/1/edit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	prefill := decode[types.StudentRecord](t, rec)
	assert.Equal(t, "a@x.com", prefill.Email)

	// Destructive: the record is gone until resubmitted.
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/students/1", "").Code)

	prefill.GPA = 4.0
	body, err := json.Marshal(prefill.StudentFields)
	require.NoError(t, err)

	rec = s.do(http.MethodPut, "/api/students/1", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[types.StudentRecord](t, rec)
	assert.Equal(t, 3, updated.ID)
	assert.Equal(t, 4.0, updated.GPA)

	ids := []int{}
	for _, r := range s.store.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 3}, ids)
}

func TestEdit_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/students/9/edit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEdit_Draft(t *testing.T) {
	s := newTestServer(t, roster.WithDraftEdits(true))
	s.do(http.MethodPost, "/api/students", annJSON)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/students/1/edit", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/students/1", "").Code)
}

func TestDelete(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/students", annJSON)

	rec := s.do(http.MethodDelete, "/api/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rec.Body.String())
	assert.Empty(t, s.store.List())

	// Deleting again is still fine.
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/students/1", "").Code)
}

func TestDelete_PersistFailure(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/students", annJSON)
	s.kv.FailSave = errors.New("quota exceeded")

	rec := s.do(http.MethodDelete, "/api/students/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, s.store.List(), 1)
}

func TestStatistics(t *testing.T) {
	s := newTestServer(t)

	assert.JSONEq(t,
		`{"total":0,"distinctCourseCount":0,"averageGpa":0,"honorCount":0}`,
		s.do(http.MethodGet, "/api/statistics", "").Body.String())

	s.do(http.MethodPost, "/api/students", annJSON)
	s.do(http.MethodPost, "/api/students", bobJSON)

	assert.JSONEq(t,
		`{"total":2,"distinctCourseCount":2,"averageGpa":3.45,"honorCount":1}`,
		s.do(http.MethodGet, "/api/statistics", "").Body.String())
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/export", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, roster.ErrEmptyExport.Error(), decode[response.Response](t, rec).Error)

	s.do(http.MethodPost, "/api/students", annJSON)

	rec = s.do(http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="students_2024-01-01.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"ID,First Name,Last Name,Email,Phone,Date of Birth,Course,GPA,Year,Age\n"+
			"1,Ann,Lee,a@x.com,555,2000-01-01,CS,3.9,2,24",
		rec.Body.String())
}
