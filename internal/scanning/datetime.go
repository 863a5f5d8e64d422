package scanning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

var (
	reDateISO        = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
	reDateNumeric    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	reDateMonthFirst = regexp.MustCompile(`(?i)\b(` + monthNames + `)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4}|\d{2})\b`)
	reDateDayFirst   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthNames + `)[a-z]*\.?,?\s+(\d{4}|\d{2})\b`)

	reTime = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):([0-5]\d)(?::[0-5]\d)?(?:\s*([ap])\.?\s?m\b\.?)?`)
)

// dateMatch is a parsed date and where it was found.
type dateMatch struct {
	date       time.Time
	line       int
	start, end int
}

// extractDate returns the first plausible date in the document.
func extractDate(lines []string, now time.Time) (dateMatch, bool) {
	for i, l := range lines {
		if d, start, end, ok := findDate(l, now); ok {
			return dateMatch{date: d, line: i, start: start, end: end}, true
		}
	}
	return dateMatch{}, false
}

// findDate tries each date pattern against a single line. Every candidate
// is rewritten into a canonical token and run through a list of layouts.
func findDate(line string, now time.Time) (time.Time, int, int, bool) {
	if m := reDateISO.FindStringSubmatchIndex(line); m != nil {
		y, mo, d := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		if t, ok := parseDateToken(mo+"/"+d+"/"+y, now, "1/2/2006"); ok {
			return t, m[0], m[1], true
		}
	}
	for _, m := range reDateNumeric.FindAllStringSubmatchIndex(line, -1) {
		a, b, y := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		y = expandYear(y, now)
		if t, ok := parseDateToken(a+"/"+b+"/"+y, now, "1/2/2006", "2/1/2006"); ok {
			return t, m[0], m[1], true
		}
	}
	if m := reDateMonthFirst.FindStringSubmatchIndex(line); m != nil {
		mon, d, y := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		if t, ok := parseDateToken(monthToken(mon)+" "+d+" "+expandYear(y, now), now, "Jan 2 2006"); ok {
			return t, m[0], m[1], true
		}
	}
	if m := reDateDayFirst.FindStringSubmatchIndex(line); m != nil {
		d, mon, y := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		if t, ok := parseDateToken(monthToken(mon)+" "+d+" "+expandYear(y, now), now, "Jan 2 2006"); ok {
			return t, m[0], m[1], true
		}
	}
	return time.Time{}, 0, 0, false
}

func parseDateToken(token string, now time.Time, layouts ...string) (time.Time, bool) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, token)
		if err != nil {
			continue
		}
		if t.Year() < 1990 || t.Year() > now.Year()+1 {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// expandYear places a two-digit year in the current century, or the one
// before when that would put the date more than a year ahead.
func expandYear(y string, now time.Time) string {
	if len(y) != 2 {
		return y
	}
	n, _ := strconv.Atoi(y)
	year := now.Year()/100*100 + n
	if year > now.Year()+1 {
		year -= 100
	}
	return strconv.Itoa(year)
}

func monthToken(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:3]
}

// extractTime prefers a time printed next to the receipt date and falls
// back to the first standalone time in the document.
func extractTime(lines []string, dm dateMatch, hasDate bool) string {
	if hasDate {
		l := lines[dm.line]
		if t := findTime(l[dm.end:]); t != "" {
			return t
		}
		if t := findTime(l[:dm.start]); t != "" {
			return t
		}
		if dm.line+1 < len(lines) {
			if t := findTime(lines[dm.line+1]); t != "" {
				return t
			}
		}
	}
	for _, l := range lines {
		if t := findTime(l); t != "" {
			return t
		}
	}
	return ""
}

func findTime(s string) string {
	m := reTime.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return formatClock(h, min, strings.ToLower(m[3]))
}

// formatClock renders a 12-hour clock time. Without a meridiem, hours up to
// 11 are morning, 12 is noon and 0 is midnight.
func formatClock(h, min int, meridiem string) string {
	switch meridiem {
	case "a":
		if h == 0 || h == 12 {
			return fmt.Sprintf("12:%02d AM", min)
		}
		if h > 12 {
			return fmt.Sprintf("%d:%02d PM", h-12, min)
		}
		return fmt.Sprintf("%d:%02d AM", h, min)
	case "p":
		if h == 0 {
			h = 12
		}
		if h > 12 {
			h -= 12
		}
		return fmt.Sprintf("%d:%02d PM", h, min)
	}
	switch {
	case h == 0:
		return fmt.Sprintf("12:%02d AM", min)
	case h < 12:
		return fmt.Sprintf("%d:%02d AM", h, min)
	case h == 12:
		return fmt.Sprintf("12:%02d PM", min)
	default:
		return fmt.Sprintf("%d:%02d PM", h-12, min)
	}
}
