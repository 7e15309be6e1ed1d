package roster

import (
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/students-roster/internal/types"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{
	"ID", "First Name", "Last Name", "Email", "Phone",
	"Date of Birth", "Course", "GPA", "Year", "Age",
}

// SerializeCSV renders records as CSV text, one row per record in the
// given order, with Age computed as of asOf.
//
// Values are joined with commas as-is. A comma or quote inside a field is
// not escaped, and a field starting with "=" is not neutralised.
func SerializeCSV(records []types.StudentRecord, asOf time.Time) (string, error) {
	if len(records) == 0 {
		return "", ErrEmptyExport
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(CSVHeader, ","))

	for _, r := range records {
		lines = append(lines, strings.Join([]string{
			strconv.Itoa(r.ID),
			r.FirstName,
			r.LastName,
			r.Email,
			r.Phone,
			r.DateOfBirth.String(),
			r.Course,
			strconv.FormatFloat(r.GPA, 'f', -1, 64),
			r.Year,
			strconv.Itoa(Age(r.DateOfBirth.Time, asOf)),
		}, ","))
	}

	return strings.Join(lines, "\n"), nil
}

// ExportFilename is the download name offered for an export made at t.
// The date is t's UTC calendar day.
func ExportFilename(t time.Time) string {
	return "students_" + t.UTC().Format(types.DateLayout) + ".csv"
}
