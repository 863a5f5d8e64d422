package scanning

import (
	"regexp"
	"strings"
)

var (
	reStreet        = regexp.MustCompile(`(?i)^\d+[a-z]?\s+(?:[nsew]\.?\s+)?[a-z0-9 .'-]*\b(street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|place|pl|parkway|pkwy|highway|hwy|circle|cir|terrace|ter|square|sq|trail|trl|plaza|route|rte|pike|broadway)\b\.?`)
	reUnitLine      = regexp.MustCompile(`(?i)^(suite|ste\.?|unit|apt\.?|#)\s*[a-z0-9-]+$`)
	reCityStateZip  = regexp.MustCompile(`^[A-Za-z][A-Za-z .'-]*,?\s+[A-Z]{2}\.?\s+\d{5}(?:-\d{4})?$`)
	reMenuDash      = regexp.MustCompile(`\s-\s`)
	reMenuPriceTail = regexp.MustCompile(`\d+\.\d{2}\s*[A-Z]?$`)
	reMenuQuantity  = regexp.MustCompile(`^\d+\s*[xX@]\s`)
)

func isStreetLine(l string) bool {
	return reStreet.MatchString(strings.TrimSpace(l))
}

func isCityStateZip(l string) bool {
	return reCityStateZip.MatchString(strings.TrimSpace(l))
}

func isMenuItem(l string) bool {
	return reMenuDash.MatchString(l) || reMenuPriceTail.MatchString(l) || reMenuQuantity.MatchString(l)
}

// extractAddress collects the address block from the header. It starts at
// the first street or city/state/ZIP line and keeps consecutive lines until a
// menu item appears or the city/state/ZIP line closes the block.
func extractAddress(lines []string, name string) string {
	header := firstN(lines, 15)
	start := -1
	for i, l := range header {
		if l == name {
			continue
		}
		if isStreetLine(l) || isCityStateZip(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	parts := []string{strings.Trim(header[start], " ,")}
	if isCityStateZip(header[start]) {
		return parts[0]
	}
	for _, l := range header[start+1:] {
		if len(parts) == 4 || isMenuItem(l) {
			break
		}
		if isCityStateZip(l) {
			parts = append(parts, strings.Trim(l, " ,"))
			break
		}
		if !isStreetLine(l) && !reUnitLine.MatchString(l) {
			break
		}
		parts = append(parts, strings.Trim(l, " ,"))
	}
	return strings.Join(parts, ", ")
}
