package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/payfast"
)

func paidRegistration() models.Registration {
	confirmed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	expected := "500.00"
	return models.Registration{
		ID:                 "reg_1",
		ParentFirstName:    "Thabo",
		ParentLastName:     "Nkosi",
		ParentEmail:        "parent@example.com",
		LearnerFirstName:   "Lwazi",
		LearnerLastName:    "Nkosi",
		LearnerGrade:       "8",
		Purpose:            models.PurposeRegistration,
		ExpectedAmount:     &expected,
		Status:             models.StatusAwaitingApproval,
		PaymentReceived:    true,
		PaymentConfirmedAt: &confirmed,
		CreatedAt:          confirmed,
	}
}

func TestReceiptForPaidRegistration(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{"reg_1": paidRegistration()}}
	events := &mockEventReader{events: []models.PaymentEvent{
		{ID: "evt_1", RegistrationID: "reg_1", ProcessorPaymentID: "1089250", Amount: "500.00", PaymentStatus: payfast.StatusComplete, Verified: true},
	}}
	svc := NewExportService(repo, events, "Sekolo Primary", nil)

	pdf, err := svc.Receipt(context.Background(), "reg_1")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestReceiptRejectsUnpaidRegistration(t *testing.T) {
	reg := paidRegistration()
	reg.PaymentReceived = false
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{"reg_1": reg}}
	svc := NewExportService(repo, &mockEventReader{}, "Sekolo Primary", nil)

	_, err := svc.Receipt(context.Background(), "reg_1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReceiptUnknownRegistration(t *testing.T) {
	svc := NewExportService(&mockRegistrationRepo{}, &mockEventReader{}, "Sekolo Primary", nil)

	_, err := svc.Receipt(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrRegistrationUnknown.Code, appErrors.FromError(err).Code)
}

func TestRegistrationsCSV(t *testing.T) {
	reg := paidRegistration()
	repo := &mockRegistrationRepo{listOut: []models.Registration{reg}, total: 1}
	svc := NewExportService(repo, &mockEventReader{}, "Sekolo Primary", nil)

	out, err := svc.RegistrationsCSV(context.Background(), models.RegistrationFilter{})
	require.NoError(t, err)

	csv := string(out)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "parent_email")
	require.Contains(t, lines[1], "reg_1")
	require.Contains(t, lines[1], "Lwazi Nkosi")
	require.Contains(t, lines[1], "yes")
	require.Contains(t, lines[1], "2026-02-10")
}
