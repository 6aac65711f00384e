package annuity

import "time"

// CivilDate drops the clock part of t, keeping its calendar day as a UTC midnight.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IntermediateYears returns the calendar years strictly between the years of start and end,
// ascending. It is empty when the two years are equal or adjacent.
func IntermediateYears(start, end time.Time) []int {
	first, last := start.Year()+1, end.Year()-1
	if last < first {
		return []int{}
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// DueDateForYear keeps the month and day of start and substitutes year.
// A February 29 start falls on February 28 in non-leap years.
func DueDateForYear(start time.Time, year int) time.Time {
	month, day := start.Month(), start.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
