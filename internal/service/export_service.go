package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/export"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/payfast"
)

// ExportService renders payment receipts and admin CSV exports.
type ExportService struct {
	registrations registrationRepository
	events        paymentEventReader
	schoolName    string
	logger        *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(registrations registrationRepository, events paymentEventReader, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{registrations: registrations, events: events, schoolName: schoolName, logger: logger}
}

// Receipt renders a PDF receipt for a paid registration. Unpaid
// registrations are rejected with a precondition failure.
func (s *ExportService) Receipt(ctx context.Context, id string) ([]byte, error) {
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if !reg.PaymentReceived {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "payment not received for registration")
	}

	events, err := s.events.ListByRegistration(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment events")
	}

	data := export.ReceiptData{
		SchoolName:     s.schoolName,
		RegistrationID: reg.ID,
		ParentName:     reg.ParentFirstName + " " + reg.ParentLastName,
		LearnerName:    reg.LearnerFirstName + " " + reg.LearnerLastName,
		Purpose:        string(reg.Purpose),
		PaidAt:         reg.PaymentConfirmedAt,
	}
	for _, event := range events {
		if event.Verified && event.PaymentStatus == payfast.StatusComplete {
			data.Amount = event.Amount
			data.PaymentID = event.ProcessorPaymentID
			break
		}
	}
	if data.Amount == "" && reg.ExpectedAmount != nil {
		data.Amount = *reg.ExpectedAmount
	}

	pdf, err := export.RenderReceipt(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, nil
}

// RegistrationsCSV renders the filtered registration list as CSV for admin
// download.
func (s *ExportService) RegistrationsCSV(ctx context.Context, filter models.RegistrationFilter) ([]byte, error) {
	filter.PageSize = 100
	if filter.Page < 1 {
		filter.Page = 1
	}

	regs, _, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}

	headers := []string{"id", "parent_email", "learner", "grade", "purpose", "status", "payment_received", "created_at"}
	rows := make([][]string, 0, len(regs))
	for _, reg := range regs {
		received := "no"
		if reg.PaymentReceived {
			received = "yes"
		}
		rows = append(rows, []string{
			reg.ID,
			reg.ParentEmail,
			reg.LearnerFirstName + " " + reg.LearnerLastName,
			reg.LearnerGrade,
			string(reg.Purpose),
			string(reg.Status),
			received,
			reg.CreatedAt.Format("2006-01-02"),
		})
	}

	csv, err := export.WriteCSV(headers, rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return csv, nil
}
