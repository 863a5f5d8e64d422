package scanning

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

const bankStatement = `FIRST NATIONAL BANK
Account Number: ****1234
Statement Period: 01/01/2024 - 01/31/2024
Beginning Balance 1,000.00
01/05 POS DEBIT JOES GRILL 17.06
01/07 AMAZON MKTP 45.99
01/12 POS PURCHASE CORNER CAFE (12.40)
Ending Balance 924.55`

var _ = Describe("Bank statement extraction", func() {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	Describe("extractTransactions", func() {
		It("reads dated rows and skips balances", func() {
			txns := extractTransactions(splitLines(bankStatement), now)
			Expect(txns).To(HaveLen(3))

			Expect(txns[0].Merchant).To(Equal("JOES GRILL"))
			Expect(txns[0].Date).To(Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
			Expect(txns[0].Amount.Equal(money("17.06"))).To(BeTrue())

			Expect(txns[2].Merchant).To(Equal("CORNER CAFE"))
			Expect(txns[2].Amount.Equal(money("12.40"))).To(BeTrue())
		})

		It("places dates without a year in the past", func() {
			txns := extractTransactions([]string{"12/28 DINER 20.00"}, now)
			Expect(txns).To(HaveLen(1))
			Expect(txns[0].Date.Year()).To(Equal(2023))
		})
	})

	DescribeTable("parseStatementAmount",
		func(in, expected string) {
			d, ok := parseStatementAmount(in)
			Expect(ok).To(BeTrue())
			Expect(d.Equal(money(expected))).To(BeTrue())
		},
		Entry("parenthesized", "(12.40)", "12.40"),
		Entry("leading minus", "-$1,012.40", "1012.40"),
		Entry("debit suffix", "12.40 DR", "12.40"),
		Entry("credit suffix", "12.40 CR", "12.40"),
	)

	Describe("selectTransaction", func() {
		var (
			hints Hints
			data  *ReceiptData
		)

		JustBeforeEach(func() {
			data = ParseText(bankStatement, hints, now)
		})

		When("no hints are given", func() {
			BeforeEach(func() {
				hints = Hints{}
			})

			It("picks the most recent restaurant transaction", func() {
				Expect(data.DocumentType).To(Equal(DocumentBankStatement))
				Expect(data.RestaurantName).To(Equal("CORNER CAFE"))
				Expect(data.Date).To(Equal("2024-01-12"))
			})
		})

		When("an amount hint is given", func() {
			BeforeEach(func() {
				hints = Hints{Amount: decimal.NewNullDecimal(money("17.06"))}
			})

			It("picks the matching amount over the most recent one", func() {
				Expect(data.RestaurantName).To(Equal("JOES GRILL"))
				Expect(data.Amount.Decimal.Equal(money("17.06"))).To(BeTrue())
				Expect(data.Total).To(Equal(data.Amount))
				Expect(data.Date).To(Equal("2024-01-05"))
			})
		})

		When("a restaurant name hint is given", func() {
			BeforeEach(func() {
				hints = NewHints("", "", "Amazon")
			})

			It("picks the matching merchant", func() {
				Expect(data.RestaurantName).To(Equal("AMAZON MKTP"))
			})
		})

		When("a date hint is given", func() {
			BeforeEach(func() {
				hints = NewHints("", "2024-01-07", "")
			})

			It("picks the transaction on that date", func() {
				Expect(data.RestaurantName).To(Equal("AMAZON MKTP"))
			})
		})
	})

	Describe("hint scoring", func() {
		txn := Transaction{
			Date:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Merchant: "JOES GRILL",
			Amount:   money("17.06"),
		}

		It("has no hints to score when none are given", func() {
			Expect(Hints{}.IsZero()).To(BeTrue())
			Expect(scoreTransaction(txn, Hints{}, txn.Date)).To(Equal(5.0 + 3 + 2))
		})

		It("adds the hint score when hints are given", func() {
			hints := NewHints("17.06", "2024-01-05", "Joes Grill")
			Expect(hints.IsZero()).To(BeFalse())
			Expect(hintScore(txn, hints)).To(Equal(50.0 + 30 + 20))
			Expect(scoreTransaction(txn, hints, txn.Date)).To(Equal(100.0 + 5 + 3 + 2))
		})
	})

	Describe("nameSimilarity", func() {
		It("treats containment as a full match", func() {
			Expect(nameSimilarity("SQ *JOES GRILL", "Joes Grill")).To(Equal(1.0))
		})

		It("scores near misses between 0 and 1", func() {
			s := nameSimilarity("JOES GRIL", "Joe's Grill")
			Expect(s).To(BeNumerically(">", 0.5))
			Expect(s).To(BeNumerically("<", 1.0))
		})
	})
})
