package scanning

import (
	"regexp"
	"strings"
)

var (
	statementStrongPhrases = []string{
		"account number",
		"routing number",
		"statement period",
		"statement date",
		"beginning balance",
		"ending balance",
		"previous balance",
		"available balance",
		"account summary",
	}
	statementWeakPhrases = []string{
		"balance",
		"debit",
		"credit",
		"deposit",
		"withdrawal",
		"transaction",
		"posted",
		"pending",
		"checking",
		"savings",
	}
	receiptOnlyPhrases = []string{
		"subtotal",
		"sub total",
		"sub-total",
		"thank you",
		"gratuity",
		"server:",
		"cashier",
		"guests",
		"table #",
		"check #",
	}
)

var (
	reLooseDate   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
	reLooseAmount = regexp.MustCompile(`-?\$?\d{1,3}(?:,\d{3})*\.\d{2}\b`)
)

// Classify decides whether text reads like a receipt or a bank statement.
func Classify(text string) DocumentType {
	return classifyLines(strings.ToLower(text), splitLines(text))
}

func classifyLines(lower string, lines []string) DocumentType {
	if countPhrases(lower, receiptOnlyPhrases) >= 2 {
		return DocumentReceipt
	}

	strong := countPhrases(lower, statementStrongPhrases)
	weak := countPhrases(lower, statementWeakPhrases)
	tabular := hasTabularRow(lines)

	if strong >= 2 || (strong >= 1 && tabular) || (weak >= 3 && tabular) {
		return DocumentBankStatement
	}
	return DocumentReceipt
}

func countPhrases(lower string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// hasTabularRow reports whether any line carries both a date and an amount,
// the shape of a statement transaction row.
func hasTabularRow(lines []string) bool {
	for _, l := range lines {
		if reLooseDate.MatchString(l) && reLooseAmount.MatchString(l) {
			return true
		}
	}
	return false
}
