package scanning

import (
	"regexp"
	"strings"
)

var reRestaurantKeyword = regexp.MustCompile(`(?i)\b(grill|grille|cafe|coffee|restaurant|bistro|diner|kitchen|bar|pub|pizza|pizzeria|tavern|eatery|bakery|deli|steakhouse|sushi|taqueria|cantina|bbq|barbecue|burger|burgers|brewery|brewing|noodle|noodles|ramen|taco|tacos|wings|house|bros|brothers|trattoria|ristorante|cocina|smokehouse|chophouse|canteen)\b`)

var nameSkipWords = []string{
	"receipt", "invoice", "order", "server", "table", "check", "guest",
	"total", "subtotal", "tax", "tip", "welcome", "thank", "visa", "card",
	"cash", "date", "time", "tel", "phone", "fax",
}

var (
	reStoreSuffix    = regexp.MustCompile(`(?i)\s*(?:#\s*|\bno\.?\s*|\bstore\s*#?\s*)(\d+)\s*$`)
	reTrailingNumber = regexp.MustCompile(`\s+(\d+)$`)
)

const nameTrimChars = " *-=~_.:|"

// extractName picks the restaurant name from the header of the receipt. It
// returns the name and any store number stripped from it.
func extractName(lines []string) (name, location string) {
	var fallback string
	for _, l := range firstN(lines, 10) {
		if !plausibleName(l) {
			continue
		}
		if reRestaurantKeyword.MatchString(l) {
			return splitStoreNumber(l)
		}
		if fallback == "" {
			fallback = l
		}
	}
	if fallback == "" {
		return "", ""
	}
	return splitStoreNumber(fallback)
}

func plausibleName(l string) bool {
	if countLetters(l) < 3 || strings.Contains(l, "@") {
		return false
	}
	lower := strings.ToLower(l)
	for _, w := range nameSkipWords {
		if containsWord(lower, w) {
			return false
		}
	}
	if reURLScheme.MatchString(l) || reURLWWW.MatchString(l) || reURLBare.MatchString(l) {
		return false
	}
	if findPhone(l) != "" || reMoney.MatchString(l) || reLooseDate.MatchString(l) {
		return false
	}
	return !isStreetLine(l) && !isCityStateZip(l)
}

func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if (start == 0 || !isWordByte(lower[start-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return true
		}
		idx = end
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// splitStoreNumber strips "#41", "No. 41" or "Store 41" off the end of a
// name. A bare trailing number is only treated as a store number when it is
// too short to be a ZIP code and does not look like a year.
func splitStoreNumber(l string) (string, string) {
	l = strings.Trim(l, nameTrimChars)
	if m := reStoreSuffix.FindStringSubmatchIndex(l); m != nil {
		name := strings.Trim(l[:m[0]], nameTrimChars)
		if name != "" {
			return collapseSpaces(name), l[m[2]:m[3]]
		}
	}
	if m := reTrailingNumber.FindStringSubmatchIndex(l); m != nil {
		num := l[m[2]:m[3]]
		if isStoreNumber(num) {
			name := strings.Trim(l[:m[0]], nameTrimChars)
			if countLetters(name) >= 2 {
				return collapseSpaces(name), num
			}
		}
	}
	return collapseSpaces(l), ""
}

func isStoreNumber(num string) bool {
	switch {
	case len(num) <= 3:
		return true
	case len(num) == 4:
		return !strings.HasPrefix(num, "19") && !strings.HasPrefix(num, "20")
	default:
		return false
	}
}
