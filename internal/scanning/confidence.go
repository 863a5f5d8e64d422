package scanning

import "github.com/shopspring/decimal"

// DefaultConfidenceThreshold is the score below which the OCR scanner drops a
// field.
const DefaultConfidenceThreshold = 0.5

var fieldWeights = map[string]float64{
	FieldAmount:         0.9,
	FieldTotal:          0.9,
	FieldRestaurantName: 0.85,
	FieldDate:           0.8,
	FieldPhone:          0.8,
	FieldWebsite:        0.8,
	FieldTax:            0.8,
	FieldAddress:        0.75,
	FieldSubtotal:       0.75,
	FieldTip:            0.75,
	FieldTime:           0.7,
	FieldLocation:       0.7,
	FieldItems:          0.6,
}

// scoreConfidence fills data.Confidence with a fixed weight for every field
// that was found and 0 for every field that was not.
func scoreConfidence(data *ReceiptData) {
	present := map[string]bool{
		FieldAmount:         data.Amount.Valid,
		FieldTotal:          data.Total.Valid,
		FieldRestaurantName: data.RestaurantName != "",
		FieldDate:           data.Date != "",
		FieldPhone:          data.Phone != "",
		FieldWebsite:        data.Website != "",
		FieldTax:            data.Tax.Valid,
		FieldAddress:        data.Address != "",
		FieldSubtotal:       data.Subtotal.Valid,
		FieldTip:            data.Tip.Valid,
		FieldTime:           data.Time != "",
		FieldLocation:       data.Location != "",
		FieldItems:          len(data.Items) > 0,
	}
	data.Confidence = make(map[string]float64, len(fieldWeights))
	for field, w := range fieldWeights {
		if present[field] {
			data.Confidence[field] = w
		} else {
			data.Confidence[field] = 0
		}
	}
}

// applyThreshold clears every field scored below threshold. Confidence keeps
// the original scores.
func applyThreshold(data *ReceiptData, threshold float64) {
	low := func(field string) bool { return data.Confidence[field] < threshold }
	none := decimal.NullDecimal{}

	if low(FieldAmount) {
		data.Amount = none
	}
	if low(FieldTotal) {
		data.Total = none
	}
	if low(FieldSubtotal) {
		data.Subtotal = none
	}
	if low(FieldTax) {
		data.Tax = none
	}
	if low(FieldTip) {
		data.Tip = none
	}
	if low(FieldRestaurantName) {
		data.RestaurantName = ""
	}
	if low(FieldDate) {
		data.Date = ""
	}
	if low(FieldTime) {
		data.Time = ""
	}
	if low(FieldPhone) {
		data.Phone = ""
	}
	if low(FieldWebsite) {
		data.Website = ""
	}
	if low(FieldAddress) {
		data.Address = ""
	}
	if low(FieldLocation) {
		data.Location = ""
	}
	if low(FieldItems) {
		data.Items = nil
	}
}
