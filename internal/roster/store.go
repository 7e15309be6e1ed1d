// Package roster is the record-management core of the roster editor: it
// owns the ordered list of students and the id counter, enforces email
// uniqueness, derives the summary statistics, filters, exports CSV, and
// keeps the key-value store in step after every change.
//
// A Store is not safe for concurrent use. Callers serialize access the way
// a page's event loop would: one operation runs to completion before the
// next starts.
//
// Every mutating operation is atomic from the caller's point of view. The
// new state is built on the side, written to storage, and only then
// swapped in; if the write fails the operation returns ErrPersist and the
// in-memory roster is exactly what it was before.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/students-roster/internal/storage"
	"github.com/aanand-mishra/students-roster/internal/types"
)

// Storage keys. "students" holds a JSON array of records, camelCase
// properties; "studentIdCounter" holds the next id as a decimal string.
const (
	KeyStudents = "students"
	KeyCounter  = "studentIdCounter"
)

// HonorGPA is the lowest GPA counted as an honor student.
const HonorGPA = 3.5

// Store holds the roster in memory and mirrors it to a storage.KV.
type Store struct {
	kv       storage.KV
	students []types.StudentRecord
	nextID   int

	draftEdits bool
	now        func() time.Time
	log        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation and hydrate messages.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock replaces time.Now as the source of "today" for exports.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDraftEdits makes BeginEdit leave the record in place. The edit is
// committed with Replace. Off by default: BeginEdit removes the record.
func WithDraftEdits(enabled bool) Option {
	return func(s *Store) { s.draftEdits = enabled }
}

// New returns an empty roster (no students, next id 1) backed by kv.
// Call Hydrate to load what kv already holds.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		students: []types.StudentRecord{},
		nextID:   1,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextID is the id the next Add will assign.
func (s *Store) NextID() int {
	return s.nextID
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// Add appends a new student and returns it with its assigned id.
//
// Names, email and phone are trimmed first. The email must not match any
// existing record exactly (case-sensitive); otherwise ErrDuplicateEmail is
// returned and nothing changes.
func (s *Store) Add(fields types.StudentFields) (types.StudentRecord, error) {
	fields = fields.Normalized()

	if emailTaken(s.students, fields.Email) {
		return types.StudentRecord{}, ErrDuplicateEmail
	}

	rec := types.StudentRecord{ID: s.nextID, StudentFields: fields}
	next := append(slices.Clone(s.students), rec)

	if err := s.commit(next, s.nextID+1); err != nil {
		return types.StudentRecord{}, fmt.Errorf("Add: %w", err)
	}

	s.log.Debug("student added", slog.Int("id", rec.ID), slog.String("email", rec.Email))
	return rec, nil
}

// BeginEdit returns the student with the given id so an editor can be
// prefilled.
//
// By default the record is removed from the roster immediately and the
// removal is persisted: the edit is only saved when the caller submits the
// fields again (Add or Replace). Abandoning the edit therefore deletes the
// record. With WithDraftEdits(true) the record stays until Replace.
func (s *Store) BeginEdit(id int) (types.StudentRecord, error) {
	i := s.indexOf(id)
	if i < 0 {
		return types.StudentRecord{}, ErrNotFound
	}
	rec := s.students[i]

	if s.draftEdits {
		return rec, nil
	}

	if err := s.commit(slices.Delete(slices.Clone(s.students), i, i+1), s.nextID); err != nil {
		return types.StudentRecord{}, fmt.Errorf("BeginEdit: %w", err)
	}

	s.log.Debug("student checked out for edit", slog.Int("id", id))
	return rec, nil
}

// Replace commits an edit in one step: the record with the given id is
// dropped (if it is still there) and fields are added as a new record with
// a new id at the end of the roster. The email check ignores the record
// being replaced.
func (s *Store) Replace(id int, fields types.StudentFields) (types.StudentRecord, error) {
	fields = fields.Normalized()

	remaining := slices.Clone(s.students)
	if i := indexOf(remaining, id); i >= 0 {
		remaining = slices.Delete(remaining, i, i+1)
	}

	if emailTaken(remaining, fields.Email) {
		return types.StudentRecord{}, ErrDuplicateEmail
	}

	rec := types.StudentRecord{ID: s.nextID, StudentFields: fields}
	if err := s.commit(append(remaining, rec), s.nextID+1); err != nil {
		return types.StudentRecord{}, fmt.Errorf("Replace: %w", err)
	}

	s.log.Debug("student replaced", slog.Int("old_id", id), slog.Int("id", rec.ID))
	return rec, nil
}

// Remove deletes the student with the given id. An unknown id is not an
// error. The roster is persisted either way.
func (s *Store) Remove(id int) error {
	next := slices.Clone(s.students)
	if i := indexOf(next, id); i >= 0 {
		next = slices.Delete(next, i, i+1)
	}

	if err := s.commit(next, s.nextID); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}

	s.log.Debug("student removed", slog.Int("id", id))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the student with the given id, or ErrNotFound.
func (s *Store) Get(id int) (types.StudentRecord, error) {
	i := s.indexOf(id)
	if i < 0 {
		return types.StudentRecord{}, ErrNotFound
	}
	return s.students[i], nil
}

// List returns every student in insertion order. The result is a copy and
// is never nil; an empty slice means the roster is empty.
func (s *Store) List() []types.StudentRecord {
	out := make([]types.StudentRecord, len(s.students))
	copy(out, s.students)
	return out
}

// Filter returns the students matching both searchTerm and courseFilter,
// in insertion order.
//
// searchTerm matches case-insensitively as a substring of "first last",
// the email, or the course. courseFilter, when non-empty, must equal the
// course exactly.
func (s *Store) Filter(searchTerm, courseFilter string) []types.StudentRecord {
	term := strings.ToLower(searchTerm)

	out := make([]types.StudentRecord, 0, len(s.students))
	for _, r := range s.students {
		if courseFilter != "" && r.Course != courseFilter {
			continue
		}
		if !strings.Contains(strings.ToLower(r.FullName()), term) &&
			!strings.Contains(strings.ToLower(r.Email), term) &&
			!strings.Contains(strings.ToLower(r.Course), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Statistics summarizes the whole roster. AverageGPA is rounded to two
// decimals and is 0 for an empty roster.
func (s *Store) Statistics() types.Statistics {
	stats := types.Statistics{Total: len(s.students)}
	if stats.Total == 0 {
		return stats
	}

	courses := make(map[string]struct{})
	var sum float64
	for _, r := range s.students {
		courses[r.Course] = struct{}{}
		sum += r.GPA
		if r.GPA >= HonorGPA {
			stats.HonorCount++
		}
	}

	stats.DistinctCourseCount = len(courses)
	stats.AverageGPA = math.Round(sum/float64(stats.Total)*100) / 100
	return stats
}

// ExportCSV renders the whole roster with SerializeCSV as of today.
func (s *Store) ExportCSV() (string, error) {
	return SerializeCSV(s.students, s.now())
}

// Now is the store's notion of the current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────────────────────

// commit writes the proposed state to storage and, only if that succeeds,
// makes it the current state.
func (s *Store) commit(students []types.StudentRecord, nextID int) error {
	if students == nil {
		students = []types.StudentRecord{}
	}
	payload, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("%w: encode students: %v", ErrPersist, err)
	}

	err = s.kv.Save(
		storage.Entry{Key: KeyStudents, Value: payload},
		storage.Entry{Key: KeyCounter, Value: []byte(strconv.Itoa(nextID))},
	)
	if err != nil {
		s.log.Error("failed to persist roster", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.students = students
	s.nextID = nextID
	return nil
}

// Hydrate replaces the in-memory roster with what storage holds.
//
// A missing key leaves its default in place (no students / next id 1).
// Each key is decoded completely before it is applied, so a value that
// fails to decode never leaves a half-loaded roster: that key keeps its
// default and a *CorruptStateError is returned for it. Errors for both
// keys are joined. Whether to carry on with the defaults or stop is the
// caller's decision.
//
// If the stored counter would hand out an id that is already in use, it
// is raised past the highest stored id.
func (s *Store) Hydrate() error {
	var errs []error

	students, err := s.loadStudents()
	switch {
	case err == nil:
		s.students = students
	case !errors.Is(err, storage.ErrKeyNotFound):
		errs = append(errs, err)
	}

	nextID, err := s.loadCounter()
	switch {
	case err == nil:
		s.nextID = nextID
	case !errors.Is(err, storage.ErrKeyNotFound):
		errs = append(errs, err)
	}

	if maxID := maxID(s.students); s.nextID <= maxID {
		s.log.Warn("stored id counter behind stored ids, raising it",
			slog.Int("counter", s.nextID),
			slog.Int("max_id", maxID))
		s.nextID = maxID + 1
	}

	s.log.Info("roster hydrated",
		slog.Int("students", len(s.students)),
		slog.Int("next_id", s.nextID))

	return errors.Join(errs...)
}

// recordKeys are the properties every stored student must carry.
var recordKeys = []string{
	"id", "firstName", "lastName", "email", "phone",
	"dateOfBirth", "course", "gpa", "year",
}

func (s *Store) loadStudents() ([]types.StudentRecord, error) {
	raw, err := s.kv.Load(KeyStudents)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("Hydrate: load %s: %w", KeyStudents, err)
	}

	corrupt := func(err error) error {
		return &CorruptStateError{Key: KeyStudents, Err: err}
	}

	// First pass: every element must be an object with every property.
	var shapes []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shapes); err != nil {
		return nil, corrupt(err)
	}
	if shapes == nil {
		return nil, corrupt(errors.New("value is not a list"))
	}
	for i, shape := range shapes {
		for _, key := range recordKeys {
			if _, ok := shape[key]; !ok {
				return nil, corrupt(fmt.Errorf("record %d: missing %q", i, key))
			}
		}
	}

	// Second pass: typed decode and the invariants the roster relies on.
	// Field content (empty names, odd emails) is whatever Add accepted.
	var students []types.StudentRecord
	if err := json.Unmarshal(raw, &students); err != nil {
		return nil, corrupt(err)
	}

	ids := make(map[int]struct{}, len(students))
	emails := make(map[string]struct{}, len(students))
	for i, r := range students {
		if r.ID < 1 {
			return nil, corrupt(fmt.Errorf("record %d: id %d is below 1", i, r.ID))
		}
		if _, dup := ids[r.ID]; dup {
			return nil, corrupt(fmt.Errorf("record %d: duplicate id %d", i, r.ID))
		}
		if _, dup := emails[r.Email]; dup {
			return nil, corrupt(fmt.Errorf("record %d: duplicate email %q", i, r.Email))
		}
		ids[r.ID] = struct{}{}
		emails[r.Email] = struct{}{}
	}

	return students, nil
}

func (s *Store) loadCounter() (int, error) {
	raw, err := s.kv.Load(KeyCounter)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("Hydrate: load %s: %w", KeyCounter, err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, &CorruptStateError{Key: KeyCounter, Err: err}
	}
	if n < 1 {
		return 0, &CorruptStateError{Key: KeyCounter, Err: fmt.Errorf("counter %d is below 1", n)}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func emailTaken(students []types.StudentRecord, email string) bool {
	return slices.ContainsFunc(students, func(r types.StudentRecord) bool {
		return r.Email == email
	})
}

func (s *Store) indexOf(id int) int {
	return indexOf(s.students, id)
}

func indexOf(students []types.StudentRecord, id int) int {
	return slices.IndexFunc(students, func(r types.StudentRecord) bool {
		return r.ID == id
	})
}

func maxID(students []types.StudentRecord) int {
	m := 0
	for _, r := range students {
		m = max(m, r.ID)
	}
	return m
}
