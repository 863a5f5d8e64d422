package scanning

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agext/levenshtein"
	"github.com/shopspring/decimal"
)

// Transaction is a single row read from a bank statement.
type Transaction struct {
	Date     time.Time
	Merchant string
	Amount   decimal.Decimal
	Line     int
}

var (
	reStmtNumericDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}|\d{2}))?\b`)
	reStmtMonthDate   = regexp.MustCompile(`(?i)\b(` + monthNames + `)[a-z]*\.?\s+(\d{1,2})(?:,?\s+(\d{4}))?\b`)
	reStmtAmount      = regexp.MustCompile(`(?i)\(\s*\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\s*\)|-?\s?\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b(?:\s?(?:cr|dr|db)\b)?`)
	reStmtSkipRow     = regexp.MustCompile(`(?i)\b(balance|beginning|ending|total|opening|closing)\b`)
	reStmtNoise       = regexp.MustCompile(`(?i)\b(pos|debit|purchase|card|checkcard|recurring|dbt|ach|visa|withdrawal)\b|x{2,}\d*|\*{2,}\d*|#\d+`)
)

var restaurantHintWords = regexp.MustCompile(`(?i)\b(restaurant|grill|cafe|coffee|pizza|bar|pub|diner|bistro|kitchen|taco|burger|sushi|deli|bakery|tavern|eatery|steakhouse|bbq|doordash|grubhub|ubereats|uber eats|starbucks|chipotle|mcdonald'?s)\b`)

// extractTransactions reads every row that carries both a date and an
// amount.
func extractTransactions(lines []string, now time.Time) []Transaction {
	var out []Transaction
	for i, l := range lines {
		if reStmtSkipRow.MatchString(l) {
			continue
		}
		date, dloc, ok := findStatementDate(l, now)
		if !ok {
			continue
		}
		rest := l[:dloc[0]] + " " + l[dloc[1]:]
		amtLocs := reStmtAmount.FindAllStringIndex(rest, -1)
		if len(amtLocs) == 0 {
			continue
		}
		amount, ok := parseStatementAmount(rest[amtLocs[0][0]:amtLocs[0][1]])
		if !ok {
			continue
		}
		merchant := reStmtAmount.ReplaceAllString(rest, " ")
		merchant = reStmtNoise.ReplaceAllString(merchant, " ")
		merchant = strings.Trim(collapseSpaces(merchant), " -*:")
		if countLetters(merchant) < 2 {
			continue
		}
		out = append(out, Transaction{Date: date, Merchant: merchant, Amount: amount, Line: i})
	}
	return out
}

// findStatementDate reads "MM/DD", "MM/DD/YY(YY)" or "Mon DD[, YYYY]". A date
// without a year is placed in the current year unless that would put it in
// the future.
func findStatementDate(l string, now time.Time) (time.Time, []int, bool) {
	if m := reStmtNumericDate.FindStringSubmatchIndex(l); m != nil {
		mo, _ := strconv.Atoi(l[m[2]:m[3]])
		d, _ := strconv.Atoi(l[m[4]:m[5]])
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(expandYear(l[m[6]:m[7]], now))
		}
		if t, ok := statementDate(year, mo, d, now); ok {
			return t, m[:2], true
		}
	}
	if m := reStmtMonthDate.FindStringSubmatchIndex(l); m != nil {
		mon, err := time.Parse("Jan", monthToken(l[m[2]:m[3]]))
		if err == nil {
			d, _ := strconv.Atoi(l[m[4]:m[5]])
			year := -1
			if m[6] >= 0 {
				year, _ = strconv.Atoi(l[m[6]:m[7]])
			}
			if t, ok := statementDate(year, int(mon.Month()), d, now); ok {
				return t, m[:2], true
			}
		}
	}
	return time.Time{}, nil, false
}

func statementDate(year, month, day int, now time.Time) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	inferred := year < 0
	if inferred {
		year = now.Year()
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	if inferred && t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, true
}

// parseStatementAmount returns the absolute value of a signed statement
// amount such as "(12.50)", "-12.50" or "12.50 DR".
func parseStatementAmount(s string) (decimal.Decimal, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range []string{"(", ")", "-", "$", ",", "cr", "dr", "db", " "} {
		s = strings.ReplaceAll(s, r, "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}

// selectTransaction scores every transaction against the hints and returns
// the best. Ties resolve to the most recent transaction, then to document
// order.
func selectTransaction(txns []Transaction, hints Hints) (Transaction, bool) {
	if len(txns) == 0 {
		return Transaction{}, false
	}
	latest := txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.After(latest) {
			latest = t.Date
		}
	}

	best, bestScore := txns[0], math.Inf(-1)
	for _, t := range txns {
		score := scoreTransaction(t, hints, latest)
		switch {
		case score > bestScore:
			best, bestScore = t, score
		case score == bestScore && t.Date.After(best.Date):
			best = t
		}
	}
	return best, true
}

func scoreTransaction(t Transaction, hints Hints, latest time.Time) float64 {
	var score float64
	if !hints.IsZero() {
		score += hintScore(t, hints)
	}

	if restaurantHintWords.MatchString(t.Merchant) {
		score += 5
	}
	if t.Amount.GreaterThanOrEqual(decimal.NewFromInt(5)) && t.Amount.LessThanOrEqual(decimal.NewFromInt(200)) {
		score += 3
	}
	if t.Date.Equal(latest) {
		score += 2
	}
	return score
}

// hintScore rewards a transaction for matching the user's amount, date and
// restaurant name.
func hintScore(t Transaction, hints Hints) float64 {
	var score float64

	if hints.Amount.Valid {
		diff := t.Amount.Sub(hints.Amount.Decimal.Abs()).Abs()
		switch {
		case diff.LessThanOrEqual(decimal.NewFromFloat(0.10)):
			score += 50
		case diff.LessThanOrEqual(decimal.NewFromInt(1)):
			score += 25
		case diff.LessThanOrEqual(decimal.NewFromInt(5)):
			score += 10
		}
	}

	if !hints.Date.IsZero() {
		days := math.Abs(t.Date.Sub(truncateDay(hints.Date)).Hours() / 24)
		switch {
		case days < 0.5:
			score += 30
		case days < 1.5:
			score += 20
		case days <= 3:
			score += 10
		case days <= 7:
			score += 5
		}
	}

	if hints.RestaurantName != "" {
		score += 20 * nameSimilarity(t.Merchant, hints.RestaurantName)
	}
	return score
}

// nameSimilarity compares a statement merchant with a restaurant name.
// Containment in either direction counts as a full match.
func nameSimilarity(merchant, name string) float64 {
	a := strings.ToLower(collapseSpaces(merchant))
	b := strings.ToLower(collapseSpaces(name))
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	return levenshtein.Similarity(a, b, nil)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseStatement picks the transaction that best matches the hints.
func parseStatement(lines []string, hints Hints, now time.Time) *ReceiptData {
	data := &ReceiptData{DocumentType: DocumentBankStatement}
	t, ok := selectTransaction(extractTransactions(lines, now), hints)
	if !ok {
		return data
	}
	data.Amount = nullMoney(t.Amount)
	data.Total = nullMoney(t.Amount)
	data.Date = t.Date.Format("2006-01-02")
	data.RestaurantName = t.Merchant
	return data
}
