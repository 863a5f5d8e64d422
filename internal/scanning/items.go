package scanning

import (
	"regexp"
	"strings"
)

const (
	maxItems     = 10
	itemTrimming = " .:*-"
)

var (
	reItemLine  = regexp.MustCompile(`^(.+?)\s+(?:\$\s?)?\d[\d,]*\.\d{2}(?:\s+[A-Z])?$`)
	reItemQty   = regexp.MustCompile(`^\d+\s*[xX@]?\s+`)
	reNotAnItem = regexp.MustCompile(`(?i)\b(change|cash|visa|mastercard|amex|discover|card|credit|debit|payment|paid|balance|amount|due|tendered|auth)\b`)
)

// extractItems reads "name  price" rows from the body of the receipt,
// skipping the header and the totals footer.
func extractItems(lines []string) []string {
	if len(lines) <= 12 {
		return nil
	}
	var items []string
	for _, l := range lines[5 : len(lines)-7] {
		m := reItemLine.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		name := strings.Trim(reItemQty.ReplaceAllString(m[1], ""), itemTrimming)
		if countLetters(name) < 2 {
			continue
		}
		if label, _ := labelOf(name); label != labelNone || reNotAnItem.MatchString(name) {
			continue
		}
		items = append(items, collapseSpaces(name))
		if len(items) == maxItems {
			break
		}
	}
	return items
}
