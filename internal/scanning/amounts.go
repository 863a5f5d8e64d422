package scanning

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type amountLabel int

const (
	labelNone amountLabel = iota
	labelSubtotal
	labelTip
	labelTax
	labelTotal
	// labelIgnored marks lines that look labelled but carry no amount we
	// want, such as "Total Savings" or a tip suggestion table.
	labelIgnored
)

// Checked in order; the first label found on a line wins so "Subtotal" is
// never read as "Total".
var amountLabels = []struct {
	label amountLabel
	re    *regexp.Regexp
	skip  func(line string) bool
}{
	{labelSubtotal, regexp.MustCompile(`(?i)\bsub[\s-]?total\b`), nil},
	{labelTip, regexp.MustCompile(`(?i)\b(tip|gratuity)\b`), isTipSuggestion},
	{labelTax, regexp.MustCompile(`(?i)\b(sales\s+tax|tax|hst|gst|vat)\b`), nil},
	{labelTotal, regexp.MustCompile(`(?i)\b(grand\s+total|total\s+due|amount\s+due|balance\s+due|total)\b`), reTotalModifier.MatchString},
}

var (
	reAlnum        = regexp.MustCompile(`[A-Za-z0-9]`)
	reTotalContext = regexp.MustCompile(`(?i)\b(total|amount|due|balance|pay|paid|visa|mastercard|amex|discover|card|cash|charge)\b`)
	reStrongTotal  = regexp.MustCompile(`(?i)\b(grand\s+total|total\s+due|amount\s+due|balance\s+due)\b`)
	rePercent      = regexp.MustCompile(`\d\s?%`)
)

// reTotalModifier matches total lines that name something other than the
// amount charged.
var reTotalModifier = regexp.MustCompile(`(?i)\b(savings?|saved|discounts?|tendered|points|rewards?)\b|\btotal\s+(items?|qty|quantity|count)\b`)

// isTipSuggestion matches footers like "Tip suggestions: 15% 2.56 20% 3.41".
func isTipSuggestion(line string) bool {
	return strings.Contains(strings.ToLower(line), "suggest") ||
		len(rePercent.FindAllStringIndex(line, -1)) > 1
}

type amounts struct {
	subtotal, tax, tip, total decimal.NullDecimal
}

func (a *amounts) get(l amountLabel) *decimal.NullDecimal {
	switch l {
	case labelSubtotal:
		return &a.subtotal
	case labelTip:
		return &a.tip
	case labelTax:
		return &a.tax
	default:
		return &a.total
	}
}

// labelOf returns the label on the line and the line with that label
// removed.
func labelOf(line string) (amountLabel, string) {
	for _, l := range amountLabels {
		if loc := l.re.FindStringIndex(line); loc != nil {
			if l.skip != nil && l.skip(line) {
				return labelIgnored, line
			}
			return l.label, line[:loc[0]] + " " + line[loc[1]:]
		}
	}
	return labelNone, line
}

// extractAmounts finds subtotal, tax, tip and total.
func extractAmounts(lines []string) amounts {
	clean := make([]string, len(lines))
	for i, l := range lines {
		clean[i] = stripPhoneFragments(l)
	}

	var same, next amounts
	// A grand total or amount due is not replaced by a later bare "Total".
	var sameStrong, nextStrong bool
	keep := func(slot *decimal.NullDecimal, label amountLabel, strong *bool, line string, v decimal.Decimal) {
		if label != labelTotal {
			if !slot.Valid {
				*slot = nullMoney(v)
			}
			return
		}
		isStrong := reStrongTotal.MatchString(line)
		if !slot.Valid || isStrong || !*strong {
			*slot = nullMoney(v)
			*strong = isStrong
		}
	}

	for i, l := range clean {
		label, rest := labelOf(l)
		if label == labelNone || label == labelIgnored {
			continue
		}
		if vals := moneyIn(rest); len(vals) > 0 {
			keep(same.get(label), label, &sameStrong, l, vals[len(vals)-1])
			continue
		}
		if reAlnum.MatchString(rest) || i+1 >= len(clean) || !isMoneyOnly(clean[i+1]) {
			continue
		}
		if v, ok := parseMoney(clean[i+1]); ok {
			keep(next.get(label), label, &nextStrong, l, v.Abs())
		}
	}

	out := same
	for _, l := range []amountLabel{labelSubtotal, labelTip, labelTax, labelTotal} {
		if n := next.get(l); n.Valid {
			*out.get(l) = *n
		}
	}

	if !out.total.Valid {
		if v, ok := scoreUnlabelledTotal(clean); ok {
			out.total = nullMoney(v)
		}
	}

	if !out.subtotal.Valid && out.total.Valid && out.tax.Valid {
		sub := out.total.Decimal.Sub(out.tax.Decimal)
		if out.tip.Valid {
			sub = sub.Sub(out.tip.Decimal)
		}
		if sub.IsPositive() {
			out.subtotal = nullMoney(sub)
		}
	}
	return out
}

// scoreUnlabelledTotal guesses the total when no line is labelled. Larger
// amounts near the end of the document and next to payment keywords score
// higher; ties go to the later line.
func scoreUnlabelledTotal(lines []string) (decimal.Decimal, bool) {
	type candidate struct {
		line  int
		value decimal.Decimal
	}
	var cands []candidate
	max := decimal.Zero
	for i, l := range lines {
		if reLooseDate.MatchString(l) {
			continue
		}
		if label, _ := labelOf(l); label != labelNone {
			continue
		}
		for _, v := range moneyIn(l) {
			if !v.IsPositive() {
				continue
			}
			cands = append(cands, candidate{line: i, value: v})
			if v.GreaterThan(max) {
				max = v
			}
		}
	}
	if len(cands) == 0 {
		return decimal.Zero, false
	}

	n := float64(len(lines))
	best, bestScore := cands[0], -1.0
	for _, c := range cands {
		pos := 1.0
		if n > 1 {
			pos = float64(c.line) / (n - 1)
		}
		ratio, _ := c.value.Div(max).Float64()
		score := 0.4*pos + 0.4*ratio
		if nearTotalKeyword(lines, c.line) {
			score += 0.2
		}
		if score >= bestScore {
			best, bestScore = c, score
		}
	}
	return best.value, true
}

func nearTotalKeyword(lines []string, i int) bool {
	for j := i - 1; j <= i+1; j++ {
		if j < 0 || j >= len(lines) {
			continue
		}
		if reTotalContext.MatchString(strings.ToLower(lines[j])) {
			return true
		}
	}
	return false
}
