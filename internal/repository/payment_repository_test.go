package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func testEvent() *models.PaymentEvent {
	return &models.PaymentEvent{
		RegistrationID:     "reg-1",
		ProcessorPaymentID: "1089250",
		Amount:             "500.00",
		PaymentStatus:      "COMPLETE",
		RawPayload:         "m_payment_id=reg-1&pf_payment_id=1089250",
		Verified:           true,
	}
}

func TestApplyOutcomeReceived(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	event := testEvent()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, payment_received = TRUE, payment_confirmed_at")).
		WithArgs("reg-1", models.StatusAwaitingApproval, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyOutcome(context.Background(), event, models.StatusAwaitingApproval, true))
	require.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyOutcomeFailed(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	event := testEvent()
	event.PaymentStatus = "FAILED"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, payment_received = FALSE, payment_failed_at")).
		WithArgs("reg-1", models.StatusPaymentFailed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyOutcome(context.Background(), event, models.StatusPaymentFailed, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyOutcomeRollsBackOnUpdateFailure(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.ApplyOutcome(context.Background(), testEvent(), models.StatusAwaitingApproval, true)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByRegistrationNewestFirst(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "registration_id", "processor_payment_id", "amount", "payment_status", "raw_payload", "verified", "created_at"}).
		AddRow("evt-2", "reg-1", "1089251", "500.00", "COMPLETE", "", true, now).
		AddRow("evt-1", "reg-1", "1089250", "500.00", "FAILED", "", true, now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, registration_id, processor_payment_id")).
		WithArgs("reg-1").
		WillReturnRows(rows)

	events, err := repo.ListByRegistration(context.Background(), "reg-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "evt-2", events[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
