package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/meal-tracker/internal/expense"
	"github.com/zombor/meal-tracker/internal/scanning"
)

// fixedScanner returns the same result for every upload
type fixedScanner struct {
	receiptData *scanning.ReceiptData
}

func (f *fixedScanner) ScanReceipt(ctx context.Context, upload scanning.Upload) (*scanning.ReceiptData, error) {
	return f.receiptData, nil
}

func (f *fixedScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		db       *expense.BoltDB
		store    *expense.LocalStorage
		service  *expense.Service
		server   *expense.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = expense.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = expense.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner := &fixedScanner{
			receiptData: &scanning.ReceiptData{
				RestaurantName: "Joe's Bros Grill",
				Location:       "41",
				Date:           "2024-02-20",
				Amount:         decimal.NewNullDecimal(decimal.RequireFromString("17.06")),
				Total:          decimal.NewNullDecimal(decimal.RequireFromString("17.06")),
				DocumentType:   scanning.DocumentReceipt,
			},
		}

		service = expense.NewService(db, scanner, store)
		server = expense.NewServer(service)
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("scans a receipt, saves it, and serves it back", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // scan
			server.ServeHTTP, // create
			server.ServeHTTP, // list
			server.ServeHTTP, // receipt file
			server.ServeHTTP, // delete
		)

		fileContent := []byte("%PDF-1.4 fake pdf content")
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(fileContent)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts/scan", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var scanned struct {
			Expense *expense.Expense `json:"expense"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&scanned)).To(Succeed())
		resp.Body.Close()

		draft := scanned.Expense
		Expect(draft.RestaurantName).To(Equal("Joe's Bros Grill"))
		Expect(draft.Amount).To(Equal(int64(1706)))
		Expect(draft.ContentType).To(Equal("application/pdf"))

		_, err = store.Get(draft.Filename)
		Expect(err).NotTo(HaveOccurred())

		_, err = db.GetExpense(draft.ID)
		Expect(err).To(MatchError(expense.ErrNotFound))

		draft.Notes = "team lunch"
		payload, err := json.Marshal(draft)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.Post(ghServer.URL()+"/api/expenses", "application/json", bytes.NewReader(payload))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		saved, err := db.GetExpense(draft.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Notes).To(Equal("team lunch"))

		resp, err = http.Get(ghServer.URL() + "/api/expenses")
		Expect(err).NotTo(HaveOccurred())
		var listed []*expense.Expense
		Expect(json.NewDecoder(resp.Body).Decode(&listed)).To(Succeed())
		resp.Body.Close()
		Expect(listed).To(HaveLen(1))

		resp, err = http.Get(ghServer.URL() + "/api/expenses/" + draft.ID + "/receipt")
		Expect(err).NotTo(HaveOccurred())
		fileBack, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(fileBack).To(Equal(fileContent))

		req, err := http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/expenses/"+draft.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		_, err = store.Get(draft.Filename)
		Expect(err).To(HaveOccurred())
	})

	It("keeps one expense's receipt out of another expense", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // scan
			server.ServeHTTP, // create
			server.ServeHTTP, // create pointing at the first receipt
			server.ServeHTTP, // create reusing the first ID
		)

		body, contentType := uploadBody("receipt.png", []byte("\x89PNG\r\n\x1a\nfake"))
		resp, err := http.Post(ghServer.URL()+"/api/receipts/scan", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		var scanned struct {
			Expense *expense.Expense `json:"expense"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&scanned)).To(Succeed())
		resp.Body.Close()
		first := scanned.Expense

		post := func(e *expense.Expense) int {
			payload, err := json.Marshal(e)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.Post(ghServer.URL()+"/api/expenses", "application/json", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			return resp.StatusCode
		}

		Expect(post(first)).To(Equal(http.StatusCreated))

		Expect(post(&expense.Expense{
			ID:             "intruder",
			RestaurantName: "Elsewhere",
			Filename:       first.Filename,
			ContentType:    "text/html",
		})).To(Equal(http.StatusBadRequest))

		Expect(post(&expense.Expense{
			ID:             first.ID,
			RestaurantName: "Elsewhere",
		})).To(Equal(http.StatusConflict))

		saved, err := db.GetExpense(first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.RestaurantName).To(Equal("Joe's Bros Grill"))
		Expect(saved.ContentType).To(Equal("image/png"))
		_, err = store.Get(first.Filename)
		Expect(err).NotTo(HaveOccurred())
	})

	It("prunes receipts from scans that were never saved", func() {
		ghServer.AppendHandlers(server.ServeHTTP)

		body, contentType := uploadBody("receipt.png", []byte("\x89PNG\r\n\x1a\nfake"))
		resp, err := http.Post(ghServer.URL()+"/api/receipts/scan", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		files, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))

		removed, err := service.PruneReceipts(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(1))

		files, err = store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(BeEmpty())
	})
})

func uploadBody(filename string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}
