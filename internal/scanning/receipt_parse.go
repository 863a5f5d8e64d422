package scanning

import (
	"strings"
	"time"
)

// ParseText turns extracted document text into a ReceiptData. It classifies
// the text first and then runs either the receipt extractors or the bank
// statement matcher. Confidence is always filled in.
func ParseText(text string, hints Hints, now time.Time) *ReceiptData {
	text = normalizeText(text)
	lines := splitLines(text)

	var data *ReceiptData
	if Classify(text) == DocumentBankStatement {
		data = parseStatement(lines, hints, now)
	} else {
		data = parseReceipt(lines, text, now)
	}
	data.RawText = text
	scoreConfidence(data)
	return data
}

func parseReceipt(lines []string, text string, now time.Time) *ReceiptData {
	data := &ReceiptData{DocumentType: DocumentReceipt}

	data.RestaurantName, data.Location = extractName(lines)
	data.Address = extractAddress(lines, nameLine(lines, data.RestaurantName))
	data.Phone = extractPhone(lines, text)
	data.Website = extractWebsite(lines)

	dm, ok := extractDate(lines, now)
	if ok {
		data.Date = dm.date.Format("2006-01-02")
	}
	data.Time = extractTime(lines, dm, ok)

	a := extractAmounts(lines)
	data.Subtotal, data.Tax, data.Tip, data.Total = a.subtotal, a.tax, a.tip, a.total
	data.Amount = a.total

	data.Items = extractItems(lines)
	return data
}

// nameLine returns the header line the restaurant name was taken from.
func nameLine(lines []string, name string) string {
	if name == "" {
		return ""
	}
	for _, l := range firstN(lines, 10) {
		if strings.Contains(collapseSpaces(l), name) {
			return l
		}
	}
	return ""
}
