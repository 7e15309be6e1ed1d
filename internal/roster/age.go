package roster

import "time"

// Age returns the number of birthdays completed between dob and asOf.
//
// Only the calendar parts of both times are used. A person born on
// 29 February completes a year on 1 March in non-leap years.
func Age(dob, asOf time.Time) int {
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}
