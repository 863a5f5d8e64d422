package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are reading a restaurant or food receipt. Carefully read all text in the image and extract:

1. **restaurant_name**: the business name printed in the header, without any store number.
2. **location**: the store or location number if one is printed next to the name (e.g. "#41" -> "41").
3. **address**: the street address, city, state and ZIP as one line.
4. **phone**: the restaurant phone number.
5. **website**: the restaurant website, if printed.
6. **date**: the transaction date in YYYY-MM-DD format.
7. **time**: the transaction time, e.g. "7:45 PM".
8. **subtotal**, **tax**, **tip**, **total**: numbers in dollars and cents (e.g. 42.75). The total is the final amount paid, including tip when one was written in.
9. **items**: up to 10 item names, without prices.

Return ONLY valid JSON in this exact format:
{
  "restaurant_name": "",
  "location": "",
  "address": "",
  "phone": "",
  "website": "",
  "date": "YYYY-MM-DD",
  "time": "",
  "subtotal": 0.00,
  "tax": 0.00,
  "tip": 0.00,
  "total": 0.00,
  "items": []
}

Important:
- If you cannot find a field, use null for that field
- Amounts must be numbers, not strings
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

const receiptSchemaJSON = `{
  "type": "object",
  "properties": {
    "restaurant_name": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "address": {"type": ["string", "null"]},
    "phone": {"type": ["string", "null"]},
    "website": {"type": ["string", "null"]},
    "date": {"type": ["string", "null"]},
    "time": {"type": ["string", "null"]},
    "subtotal": {"type": ["number", "string", "null"]},
    "tax": {"type": ["number", "string", "null"]},
    "tip": {"type": ["number", "string", "null"]},
    "total": {"type": ["number", "string", "null"]},
    "items": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var receiptSchema = mustCompileSchema("receipt.json", receiptSchemaJSON)

func mustCompileSchema(url, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	return compiler.MustCompile(url)
}

type llmReceipt struct {
	RestaurantName string   `json:"restaurant_name"`
	Location       string   `json:"location"`
	Address        string   `json:"address"`
	Phone          string   `json:"phone"`
	Website        string   `json:"website"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Subtotal       any      `json:"subtotal"`
	Tax            any      `json:"tax"`
	Tip            any      `json:"tip"`
	Total          any      `json:"total"`
	Items          []string `json:"items"`
}

// parseReceiptJSON parses and validates an LLM response, then runs the same
// normalizers and scoring as the OCR path.
func parseReceiptJSON(text string, now time.Time) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := receiptSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}

	var raw llmReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data := &ReceiptData{
		DocumentType:   DocumentReceipt,
		RestaurantName: strings.TrimSpace(raw.RestaurantName),
		Location:       strings.TrimPrefix(strings.TrimSpace(raw.Location), "#"),
		Address:        collapseSpaces(raw.Address),
		Date:           normalizeDate(raw.Date, now),
		Subtotal:       jsonMoney(raw.Subtotal),
		Tax:            jsonMoney(raw.Tax),
		Tip:            jsonMoney(raw.Tip),
		Total:          jsonMoney(raw.Total),
		RawText:        text,
	}
	data.Amount = data.Total
	if p, ok := normalizePhone(raw.Phone); ok {
		data.Phone = p
	}
	if strings.TrimSpace(raw.Website) != "" {
		data.Website = normalizeWebsite(raw.Website)
	}
	data.Time = findTime(raw.Time)
	for _, item := range raw.Items {
		if item = collapseSpaces(item); item != "" {
			data.Items = append(data.Items, item)
		}
		if len(data.Items) == maxItems {
			break
		}
	}

	scoreConfidence(data)
	return data, nil
}

// normalizeDate returns s as YYYY-MM-DD, or "" when it is not a date.
func normalizeDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, _, _, ok := findDate(s, now); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

// jsonMoney accepts a JSON number or a "$12.34" style string.
func jsonMoney(v any) decimal.NullDecimal {
	switch t := v.(type) {
	case float64:
		return nullMoney(decimal.NewFromFloat(t).Round(2))
	case string:
		if d, ok := parseMoney(t); ok {
			return nullMoney(d)
		}
	}
	return decimal.NullDecimal{}
}
