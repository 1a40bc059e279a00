package crawl

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Google Maps shows review ages as relative phrases ("3 weeks ago",
// "il y a 2 mois"). ResolveDate converts a phrase to an absolute
// ISO-8601 date anchored at now, using the fixed approximations
// week=7d, month=30d, year=365d. Phrases it cannot read resolve to the
// anchor date itself, so a record always carries a plausible date.
func ResolveDate(phrase string, now time.Time) string {
	p := strings.ToLower(strings.TrimSpace(phrase))
	days := unitDays(p) * quantity(p)
	return now.AddDate(0, 0, -days).Format("2006-01-02")
}

var digits = regexp.MustCompile(`\d+`)

// quantity pulls the leading count, treating articles ("a week ago",
// "il y a un mois") as one.
func quantity(p string) int {
	if m := digits.FindString(p); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 1
}

var frenchYear = regexp.MustCompile(`\bans?\b`)

func unitDays(p string) int {
	switch {
	case strings.Contains(p, "year") || frenchYear.MatchString(p):
		return 365
	case strings.Contains(p, "month") || strings.Contains(p, "mois"):
		return 30
	case strings.Contains(p, "week") || strings.Contains(p, "semaine"):
		return 7
	case strings.Contains(p, "today") || strings.Contains(p, "aujourd"):
		return 0
	case strings.Contains(p, "day") || strings.Contains(p, "jour"):
		return 1
	default:
		// hours, minutes, "today", "aujourd'hui" and anything
		// unrecognized anchor at the run date
		return 0
	}
}
