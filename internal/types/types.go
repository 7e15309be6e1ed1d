// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// the roster core, storage backends, and HTTP handlers can all import
// types without depending on each other.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component.
//
// It is stored as a time.Time pinned to midnight UTC so that comparisons
// and year/month/day arithmetic never drift with the local timezone.
// On the wire (JSON, CSV) it is always written as "YYYY-MM-DD", which is
// the same shape an HTML <input type="date"> produces.
type Date struct {
	time.Time
}

// NewDate builds a Date from its calendar parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day from t, keeping t's own calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// String returns the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts only a JSON string in "YYYY-MM-DD" form.
// An empty string decodes to the zero Date so that the validator's
// "required" rule can report it as a missing field.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StudentFields are the user-editable fields of a student: everything
// except the ID, which the roster assigns.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  : the camelCase names used both by the page and by the
//     persisted "students" value, so data written by older sessions still
//     decodes.
//
//  2. validate:"..." : rules checked by the go-playground/validator
//     package. GPA deliberately has no range rule: 0.0–4.0 is expected
//     but never enforced.
type StudentFields struct {
	FirstName   string  `json:"firstName"   validate:"required"`
	LastName    string  `json:"lastName"    validate:"required"`
	Email       string  `json:"email"       validate:"required,email"`
	Phone       string  `json:"phone"`
	DateOfBirth Date    `json:"dateOfBirth" validate:"required"`
	Course      string  `json:"course"      validate:"required"`
	GPA         float64 `json:"gpa"`
	Year        string  `json:"year"        validate:"required"`
}

// Normalized returns f with surrounding whitespace removed from the
// free-text fields. Course and year come from fixed choices and are kept.
func (f StudentFields) Normalized() StudentFields {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	return f
}

// StudentRecord is a stored student. ID is unique and never reused.
type StudentRecord struct {
	ID int `json:"id" validate:"required,gt=0"`
	StudentFields
}

// FullName is first and last name joined by a single space.
func (s StudentRecord) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Statistics is the summary shown above the roster table.
type Statistics struct {
	Total               int     `json:"total"`
	DistinctCourseCount int     `json:"distinctCourseCount"`
	AverageGPA          float64 `json:"averageGpa"`
	HonorCount          int     `json:"honorCount"`
}
