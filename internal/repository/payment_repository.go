package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
)

// PaymentRepository persists payment events and applies verified payment
// outcomes to their registration in a single transaction.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ApplyOutcome upserts the payment event and updates the registration's
// payment state atomically. The upsert keys on (registration_id,
// processor_payment_id), so at-least-once delivery of the same notification
// overwrites one row instead of appending duplicates.
func (r *PaymentRepository) ApplyOutcome(ctx context.Context, event *models.PaymentEvent, status models.RegistrationStatus, received bool) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment outcome: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO payment_events (id, registration_id, processor_payment_id, amount, payment_status, raw_payload, verified, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (registration_id, processor_payment_id)
        DO UPDATE SET amount = EXCLUDED.amount, payment_status = EXCLUDED.payment_status,
            raw_payload = EXCLUDED.raw_payload, verified = EXCLUDED.verified`
	if _, err := tx.ExecContext(ctx, upsert,
		event.ID, event.RegistrationID, event.ProcessorPaymentID,
		event.Amount, event.PaymentStatus, event.RawPayload, event.Verified, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert payment event: %w", err)
	}

	var update string
	if received {
		update = `UPDATE registrations SET status = $2, payment_received = TRUE, payment_confirmed_at = $3, updated_at = $3 WHERE id = $1`
	} else {
		update = `UPDATE registrations SET status = $2, payment_received = FALSE, payment_failed_at = $3, updated_at = $3 WHERE id = $1`
	}
	if _, err := tx.ExecContext(ctx, update, event.RegistrationID, status, now); err != nil {
		return fmt.Errorf("update registration payment state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment outcome: %w", err)
	}
	return nil
}

// ListByRegistration returns the payment events recorded for a registration,
// newest first.
func (r *PaymentRepository) ListByRegistration(ctx context.Context, registrationID string) ([]models.PaymentEvent, error) {
	const query = `SELECT id, registration_id, processor_payment_id, amount, payment_status, raw_payload, verified, created_at
        FROM payment_events WHERE registration_id = $1 ORDER BY created_at DESC`
	var events []models.PaymentEvent
	if err := r.db.SelectContext(ctx, &events, query, registrationID); err != nil {
		return nil, fmt.Errorf("list payment events: %w", err)
	}
	return events, nil
}
