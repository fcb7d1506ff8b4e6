package repository

import (
	"context"
	"fmt"

	"github.com/agrofund/loan-service/internal/models"
)

// SaveCalculation stores a quote in the calculation history
func (r *Repository) SaveCalculation(ctx context.Context, calc *models.Calculation) error {
	query := `
		INSERT INTO agrofund.calculations (plan_id, loan_amount, number_of_payments, emi_amount,
			total_interest, total_repayment, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		calc.PlanID, calc.LoanAmount, calc.NumberOfPayments, calc.EMIAmount,
		calc.TotalInterest, calc.TotalRepayment, calc.Signature,
	).Scan(&calc.ID, &calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}
	return nil
}

// ListCalculations returns the most recent quotes for a plan
func (r *Repository) ListCalculations(ctx context.Context, planID string, limit int) ([]models.Calculation, error) {
	query := `
		SELECT id, plan_id, loan_amount, number_of_payments, emi_amount, total_interest,
			total_repayment, signature, created_at
		FROM agrofund.calculations
		WHERE plan_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	calcs := []models.Calculation{}
	for rows.Next() {
		var c models.Calculation
		if err := rows.Scan(&c.ID, &c.PlanID, &c.LoanAmount, &c.NumberOfPayments, &c.EMIAmount,
			&c.TotalInterest, &c.TotalRepayment, &c.Signature, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	return calcs, nil
}
