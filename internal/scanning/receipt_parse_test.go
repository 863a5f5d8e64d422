package scanning

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const joesReceipt = `JOE'S BROS GRILL #41
123 Main St
Springfield, IL 62701
Tel: (217) 555-0142
www.joesbrosgrill.com
Server: Amy     Table 12
02/20/2024 7:45 PM
Cheeseburger        8.99
Onion Rings         6.79
--------------------
Subtotal           15.78
Tax                 1.28
Total              17.06
VISA               17.06
Thank you for dining with us!`

var _ = Describe("ParseText", func() {
	var (
		text  string
		hints Hints
		data  *ReceiptData
	)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		hints = Hints{}
	})

	JustBeforeEach(func() {
		data = ParseText(text, hints, now)
	})

	When("parsing a printed restaurant receipt", func() {
		BeforeEach(func() {
			text = joesReceipt
		})

		It("classifies it as a receipt", func() {
			Expect(data.DocumentType).To(Equal(DocumentReceipt))
		})

		It("extracts the header fields", func() {
			Expect(data.RestaurantName).To(ContainSubstring("Bros"))
			Expect(data.RestaurantName).To(Equal("JOE'S BROS GRILL"))
			Expect(data.Location).To(Equal("41"))
			Expect(data.Address).To(Equal("123 Main St, Springfield, IL 62701"))
			Expect(data.Phone).To(Equal("(217) 555-0142"))
			Expect(data.Website).To(Equal("https://www.joesbrosgrill.com"))
		})

		It("extracts the date and time", func() {
			Expect(data.Date).To(Equal("2024-02-20"))
			Expect(data.Time).To(Equal("7:45 PM"))
		})

		It("extracts the amounts", func() {
			Expect(data.Total.Decimal.Equal(money("17.06"))).To(BeTrue())
			Expect(data.Amount.Decimal.Equal(money("17.06"))).To(BeTrue())
			Expect(data.Subtotal.Decimal.Equal(money("15.78"))).To(BeTrue())
			Expect(data.Tax.Decimal.Equal(money("1.28"))).To(BeTrue())
			Expect(data.Tip.Valid).To(BeFalse())
		})

		It("scores every field", func() {
			Expect(data.Confidence).To(HaveLen(13))
			Expect(data.Confidence[FieldAmount]).To(Equal(0.9))
			Expect(data.Confidence[FieldRestaurantName]).To(Equal(0.85))
			Expect(data.Confidence[FieldTip]).To(BeZero())
		})

		It("keeps the normalized text", func() {
			Expect(data.RawText).To(ContainSubstring("Cheeseburger 8.99"))
			Expect(data.RawText).NotTo(ContainSubstring("-----"))
		})
	})

	When("parsing a receipt with items and a tip", func() {
		BeforeEach(func() {
			text = harborGrillReceipt
		})

		It("extracts everything", func() {
			Expect(data.RestaurantName).To(Equal("HARBOR GRILL"))
			Expect(data.Address).To(Equal("42 Pier Rd, Portland, ME 04101"))
			Expect(data.Phone).To(Equal("(207) 555-0199"))
			Expect(data.Date).To(Equal("2024-03-02"))
			Expect(data.Time).To(Equal("12:30 PM"))
			Expect(data.Tip.Decimal.Equal(money("8.00"))).To(BeTrue())
			Expect(data.Total.Decimal.Equal(money("59.96"))).To(BeTrue())
			Expect(data.Items).To(ConsistOf("Lobster Roll", "Clam Chowder", "Soda"))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("returns an empty receipt", func() {
			Expect(data.DocumentType).To(Equal(DocumentReceipt))
			Expect(data.Amount.Valid).To(BeFalse())
			Expect(data.Confidence).To(HaveLen(13))
			Expect(data.Confidence[FieldAmount]).To(BeZero())
		})
	})

	When("a savings line follows the total", func() {
		BeforeEach(func() {
			text = "CORNER CAFE\nBurger 12.00\nTotal 17.06\nTotal Savings 3.00\nThank you"
		})

		It("keeps the real total", func() {
			Expect(data.Total.Decimal.Equal(money("17.06"))).To(BeTrue())
			Expect(data.Amount.Decimal.Equal(money("17.06"))).To(BeTrue())
		})
	})

	It("is deterministic", func() {
		first := ParseText(joesReceipt, Hints{}, now)
		second := ParseText(joesReceipt, Hints{}, now)
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("applyThreshold", func() {
	It("drops fields scored below the threshold", func() {
		data := ParseText(harborGrillReceipt, Hints{}, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
		applyThreshold(data, 0.8)

		Expect(data.Total.Valid).To(BeTrue())
		Expect(data.RestaurantName).To(Equal("HARBOR GRILL"))
		Expect(data.Date).NotTo(BeEmpty())
		Expect(data.Items).To(BeNil())
		Expect(data.Time).To(BeEmpty())
		Expect(data.Address).To(BeEmpty())
		Expect(data.Tip.Valid).To(BeFalse())
		Expect(data.Confidence[FieldItems]).To(Equal(0.6))
	})
})
