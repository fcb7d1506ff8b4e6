package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/amortization"
	"github.com/agrofund/loan-service/internal/models"
	"github.com/agrofund/loan-service/internal/utils"
	"github.com/agrofund/loan-service/internal/validation"
)

const (
	referenceRateKey    = "reference_rate"
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// CalculateEMI quotes the repayment of req.LoanAmount under the requested plan
func (s *Service) CalculateEMI(ctx context.Context, req models.CalculationRequest) (*models.Quote, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	start := s.now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
		start = parsed
	}

	plan, err := s.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("plan %s: %w", plan.ID, ErrPlanInactive)
	}

	result, err := amortization.Compute(*plan, req.LoanAmount)
	if err != nil {
		return nil, err
	}
	schedule, err := amortization.Schedule(*plan, req.LoanAmount, start)
	if err != nil {
		return nil, err
	}

	quote := &models.Quote{
		CalculationResult: result,
		PlanID:            plan.ID,
		Schedule:          schedule,
		Signature:         utils.SignQuote(s.config.HMACSecret, plan.ID, result),
	}

	calc := &models.Calculation{
		PlanID:           plan.ID,
		LoanAmount:       result.LoanAmount,
		NumberOfPayments: result.NumberOfPayments,
		EMIAmount:        result.EMIAmount,
		TotalInterest:    result.TotalInterest,
		TotalRepayment:   result.TotalRepaymentAmount,
		Signature:        quote.Signature,
	}
	if err := s.store.SaveCalculation(ctx, calc); err != nil {
		s.log.Warnf("Failed to save calculation for plan %s: %v", plan.ID, err)
	}

	if req.Email != "" {
		if s.mailer == nil {
			s.log.Debugf("Quote e-mail to %s skipped: e-mails disabled", req.Email)
		} else if err := s.mailer.SendQuote(req.Email, *quote); err != nil {
			s.log.Warnf("Failed to e-mail quote for plan %s: %v", plan.ID, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"plan_id":     plan.ID,
		"loan_amount": result.LoanAmount,
		"emi":         result.EMIAmount,
		"payments":    result.NumberOfPayments,
	}).Info("Quote calculated")
	return quote, nil
}

// ListCalculations returns recent quotes for a plan, newest first
func (s *Service) ListCalculations(ctx context.Context, planID string, limit int) ([]models.Calculation, error) {
	id, err := checkID(planID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.ListCalculations(ctx, id, limit)
}

// ReferenceRate returns the cached reference rate, fetching it on a miss
func (s *Service) ReferenceRate(ctx context.Context) (float64, error) {
	if rate, ok := s.cachedReferenceRate(ctx); ok {
		return rate, nil
	}
	return s.RefreshReferenceRate(ctx)
}

func (s *Service) cachedReferenceRate(ctx context.Context) (float64, bool) {
	raw, ok := s.cache.Get(ctx, referenceRateKey)
	if !ok {
		return 0, false
	}
	rate, err := strconv.ParseFloat(raw, 64)
	return rate, err == nil
}

// RefreshReferenceRate fetches the reference rate and caches it
func (s *Service) RefreshReferenceRate(ctx context.Context) (float64, error) {
	rate, err := s.rates.GetKeyRate(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get key rate: %w", err)
	}
	raw := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := s.cache.Set(ctx, referenceRateKey, raw, s.config.RateCacheTTL); err != nil {
		s.log.Warnf("Failed to cache reference rate: %v", err)
	}
	return rate, nil
}
