package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrofund/loan-service/internal/models"
)

const planColumns = `id, name, description, min_loan_amount, max_loan_amount, interest_rate, interest_type,
		duration_value, duration_unit, payment_frequency, late_penalty_type, late_penalty_value,
		is_active, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*models.LoanPlan, error) {
	plan := &models.LoanPlan{}
	var createdBy sql.NullInt64
	err := row.Scan(
		&plan.ID, &plan.Name, &plan.Description, &plan.MinLoanAmount, &plan.MaxLoanAmount,
		&plan.InterestRate, &plan.InterestType, &plan.Duration.Value, &plan.Duration.Unit,
		&plan.PaymentFrequency, &plan.LatePenalty.Type, &plan.LatePenalty.Value,
		&plan.IsActive, &createdBy, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.CreatedBy = createdBy.Int64
	return plan, nil
}

func nullableUserID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

// CreatePlan inserts a new loan plan. plan.ID must already be set.
func (r *Repository) CreatePlan(ctx context.Context, plan *models.LoanPlan) error {
	query := `
		INSERT INTO agrofund.loan_plans (id, name, description, min_loan_amount, max_loan_amount,
			interest_rate, interest_type, duration_value, duration_unit, payment_frequency,
			late_penalty_type, late_penalty_value, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.MinLoanAmount, plan.MaxLoanAmount,
		plan.InterestRate, plan.InterestType, plan.Duration.Value, plan.Duration.Unit,
		plan.PaymentFrequency, plan.LatePenalty.Type, plan.LatePenalty.Value,
		plan.IsActive, nullableUserID(plan.CreatedBy),
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan by id
func (r *Repository) GetPlan(ctx context.Context, id string) (*models.LoanPlan, error) {
	query := `SELECT ` + planColumns + ` FROM agrofund.loan_plans WHERE id = $1`
	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns plans ordered by creation time, newest first
func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]models.LoanPlan, error) {
	query := `SELECT ` + planColumns + ` FROM agrofund.loan_plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []models.LoanPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// UpdatePlan overwrites the editable fields of a plan
func (r *Repository) UpdatePlan(ctx context.Context, plan *models.LoanPlan) error {
	query := `
		UPDATE agrofund.loan_plans
		SET name = $2, description = $3, min_loan_amount = $4, max_loan_amount = $5,
			interest_rate = $6, interest_type = $7, duration_value = $8, duration_unit = $9,
			payment_frequency = $10, late_penalty_type = $11, late_penalty_value = $12,
			is_active = $13, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.MinLoanAmount, plan.MaxLoanAmount,
		plan.InterestRate, plan.InterestType, plan.Duration.Value, plan.Duration.Unit,
		plan.PaymentFrequency, plan.LatePenalty.Type, plan.LatePenalty.Value, plan.IsActive,
	).Scan(&plan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("plan %s: %w", plan.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// SetPlanActive flips the visibility of a plan to borrowers
func (r *Repository) SetPlanActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE agrofund.loan_plans SET is_active = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	return expectOneRow(res, id)
}

// DeletePlan removes a plan and, by cascade, its calculation history
func (r *Repository) DeletePlan(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agrofund.loan_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return nil
}
