package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dayRe     = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// monthNames is scanned in order; the first name contained in the input wins.
var monthNames = []struct {
	name  string
	month time.Month
}{
	{"january", time.January}, {"jan", time.January},
	{"february", time.February}, {"feb", time.February},
	{"march", time.March}, {"mar", time.March},
	{"april", time.April}, {"apr", time.April},
	{"may", time.May},
	{"june", time.June}, {"jun", time.June},
	{"july", time.July}, {"jul", time.July},
	{"august", time.August}, {"aug", time.August},
	{"september", time.September}, {"sep", time.September}, {"sept", time.September},
	{"october", time.October}, {"oct", time.October},
	{"november", time.November}, {"nov", time.November},
	{"december", time.December}, {"dec", time.December},
}

// ParseFlexibleDate resolves customer date input relative to now and returns
// the calendar date at midnight in now's location.
//
// Accepted: "today"/"now", "tomorrow", anything containing "next week" (+7
// days) or "next month" (+30 days), YYYY-MM-DD, a day number with optional
// ordinal suffix, optionally with a month name. A bare day earlier than today
// rolls to next month; a month and day earlier than today roll to next year.
func ParseFlexibleDate(input string, now time.Time) (time.Time, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case in == "today" || in == "now":
		return today, nil
	case in == "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case strings.Contains(in, "next week"):
		return today.AddDate(0, 0, 7), nil
	case strings.Contains(in, "next month"):
		return today.AddDate(0, 0, 30), nil
	}

	if isoDateRe.MatchString(in) {
		d, err := time.ParseInLocation(DateLayout, in, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("Invalid date: %s", in)
		}
		return d, nil
	}

	m := dayRe.FindStringSubmatch(in)
	if m == nil {
		return time.Time{}, fmt.Errorf("Could not parse date: '%s'. Use format like '21', 'March 15', or '2025-03-15'", in)
	}
	day, _ := strconv.Atoi(m[1])

	var month time.Month
	for _, mn := range monthNames {
		if strings.Contains(in, mn.name) {
			month = mn.month
			break
		}
	}

	year := now.Year()
	if month == 0 {
		month = now.Month()
		if day < now.Day() {
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}
	} else if month < now.Month() || (month == now.Month() && day < now.Day()) {
		year++
	}

	if day < 1 || day > daysIn(year, month) {
		return time.Time{}, fmt.Errorf("Invalid date: day %d doesn't exist in month %d", day, int(month))
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
