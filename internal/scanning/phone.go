package scanning

import (
	"fmt"
	"regexp"
	"strings"
)

// Ordered from most to least specific.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:\+?1[\s.-]?)?\(\s*(\d{3})\s*\)\s*(\d{3})\s*[\s.-]?\s*(\d{4})\b`),
	regexp.MustCompile(`\b(?:\+?1[\s.-])?(\d{3})[\s.-](\d{3})[\s.-](\d{4})\b`),
	regexp.MustCompile(`\b1?(\d{3})(\d{3})(\d{4})\b`),
}

// extractPhone finds the first valid US phone number in the first 20 lines,
// then falls back to the raw text so numbers split across lines are found.
func extractPhone(lines []string, raw string) string {
	for _, l := range firstN(lines, 20) {
		if p := findPhone(l); p != "" {
			return p
		}
	}
	return findPhone(raw)
}

func findPhone(s string) string {
	for _, re := range phonePatterns {
		for _, m := range re.FindAllString(s, -1) {
			if p, ok := normalizePhone(m); ok {
				return p
			}
		}
	}
	return ""
}

// normalizePhone validates a phone candidate and renders it as
// "(AAA) EEE-NNNN".
func normalizePhone(s string) (string, bool) {
	digits := onlyDigits(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	if digits[0] == '0' || digits[0] == '1' {
		return "", false
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return "", false
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:]), true
}

var (
	rePhoneAreaParen = regexp.MustCompile(`\(\s*\d{3}\s*\)`)
	rePhoneAreaDash  = regexp.MustCompile(`\b\d{3}\s?-`)
)

// stripPhoneFragments blanks phone numbers and area-code fragments so their
// digits are never read as prices.
func stripPhoneFragments(line string) string {
	for _, re := range phonePatterns[:2] {
		line = re.ReplaceAllString(line, " ")
	}
	line = rePhoneAreaParen.ReplaceAllString(line, " ")
	return rePhoneAreaDash.ReplaceAllString(line, " ")
}
