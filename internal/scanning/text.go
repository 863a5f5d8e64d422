package scanning

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=*~]{3,}\s*$`)
)

// Money tokens always carry cents; bare integers are never prices.
var (
	reMoney     = regexp.MustCompile(`(?:\$\s?)?(\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b`)
	reMoneyOnly = regexp.MustCompile(`^(?:\$\s?)?-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}$`)
)

// normalizeText collapses noisy whitespace and drops separator rows. Line
// breaks are preserved.
func normalizeText(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitLines returns the non-empty, trimmed lines of text.
func splitLines(text string) []string {
	raw := strings.Split(normalizeText(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func firstN(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}

// parseMoney parses "$1,234.56", "17.06" or "17" into a decimal.
func parseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// moneyIn returns every money token on the line, in order.
func moneyIn(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range reMoney.FindAllString(line, -1) {
		if d, ok := parseMoney(m); ok {
			out = append(out, d)
		}
	}
	return out
}

func isMoneyOnly(line string) bool {
	return reMoneyOnly.MatchString(strings.TrimSpace(line))
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nullMoney(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}
