package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
)

// RegistrationRepository handles persistence of registration records.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, parent_first_name, parent_last_name, parent_email,
        learner_first_name, learner_last_name, learner_grade, purpose, expected_amount,
        status, payment_received, created_at, updated_at, payment_confirmed_at, payment_failed_at`

// Create persists a new registration record.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	if reg.Status == "" {
		reg.Status = models.StatusPaymentPending
	}
	const query = `INSERT INTO registrations (id, parent_first_name, parent_last_name, parent_email,
        learner_first_name, learner_last_name, learner_grade, purpose, expected_amount,
        status, payment_received, created_at, updated_at)
        VALUES (:id, :parent_first_name, :parent_last_name, :parent_email,
        :learner_first_name, :learner_last_name, :learner_grade, :purpose, :expected_amount,
        :status, :payment_received, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE id = $1", registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Purpose != "" {
		conditions = append(conditions, fmt.Sprintf("purpose = $%d", len(args)+1))
		args = append(args, filter.Purpose)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(parent_email ILIKE $%d OR learner_last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"status":       "status",
		"parent_email": "parent_email",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM registrations%s ORDER BY %s %s LIMIT %d OFFSET %d",
		registrationColumns, clause, orderBy, order, size, offset)

	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM registrations" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return regs, total, nil
}

// UpdateStatus moves a registration to a new lifecycle state. Used by the
// retry reset (payment_pending) and the admin approval (submitted); the
// notifier's transition goes through PaymentRepository.ApplyOutcome instead
// so it shares a transaction with the event upsert.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return nil
}
