package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptData carries everything rendered on a payment receipt.
type ReceiptData struct {
	SchoolName     string
	RegistrationID string
	ParentName     string
	LearnerName    string
	Purpose        string
	Amount         string
	PaymentID      string
	PaidAt         *time.Time
}

// RenderReceipt produces a single-page PDF receipt for a verified payment.
func RenderReceipt(data ReceiptData) ([]byte, error) {
	if data.RegistrationID == "" {
		return nil, fmt.Errorf("receipt requires a registration id")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Registration", data.RegistrationID},
		{"Parent", data.ParentName},
		{"Learner", data.LearnerName},
		{"Purpose", data.Purpose},
		{"Amount", "R " + data.Amount},
		{"Payment reference", data.PaymentID},
	}
	if data.PaidAt != nil {
		rows = append(rows, [2]string{"Paid at", data.PaidAt.Format("2006-01-02 15:04 MST")})
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This receipt was generated automatically after payment verification.", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
