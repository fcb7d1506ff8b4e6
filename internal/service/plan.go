package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/auth"
	"github.com/agrofund/loan-service/internal/models"
	"github.com/agrofund/loan-service/internal/validation"
)

func planCacheKey(id string) string {
	return "plan:" + id
}

// checkID normalizes a plan id, rejecting anything that is not a UUID
func checkID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func isAdmin(ctx context.Context) bool {
	id, ok := auth.FromContext(ctx)
	return ok && id.IsAdmin()
}

// CreatePlan validates and stores a new plan, active by default
func (s *Service) CreatePlan(ctx context.Context, in models.PlanInput) (*models.LoanPlan, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	plan := &models.LoanPlan{ID: uuid.NewString(), IsActive: true}
	in.Apply(plan)
	if id, ok := auth.FromContext(ctx); ok {
		plan.CreatedBy = id.UserID
	}

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}

	s.log.Infof("Plan created: %s (%s)", plan.ID, plan.Name)
	s.checkPricing(ctx, plan)
	return plan, nil
}

// GetPlan returns a plan. Inactive plans are only visible to administrators.
func (s *Service) GetPlan(ctx context.Context, id string) (*models.LoanPlan, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive && !isAdmin(ctx) {
		return nil, fmt.Errorf("plan %s: %w", plan.ID, ErrNotFound)
	}
	return plan, nil
}

// ListPlans returns active plans, or every plan when includeInactive is set
// by an administrator
func (s *Service) ListPlans(ctx context.Context, includeInactive bool) ([]models.LoanPlan, error) {
	if includeInactive && !isAdmin(ctx) {
		return nil, ErrForbidden
	}
	return s.store.ListPlans(ctx, !includeInactive)
}

// UpdatePlan replaces the editable fields of a plan
func (s *Service) UpdatePlan(ctx context.Context, id string, in models.PlanInput) (*models.LoanPlan, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(plan)
	if err := s.store.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}
	s.invalidatePlan(ctx, id)

	s.log.Infof("Plan updated: %s", id)
	s.checkPricing(ctx, plan)
	return plan, nil
}

// TogglePlanStatus flips whether a plan is offered to borrowers
func (s *Service) TogglePlanStatus(ctx context.Context, id string) (*models.LoanPlan, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPlanActive(ctx, id, !plan.IsActive); err != nil {
		return nil, err
	}
	plan.IsActive = !plan.IsActive
	s.invalidatePlan(ctx, id)

	s.log.Infof("Plan %s active=%t", id, plan.IsActive)
	return plan, nil
}

// DeletePlan removes a plan
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return err
	}
	s.invalidatePlan(ctx, id)

	s.log.Infof("Plan deleted: %s", id)
	return nil
}

// loadPlan reads a plan through the cache
func (s *Service) loadPlan(ctx context.Context, id string) (*models.LoanPlan, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}

	if raw, ok := s.cache.Get(ctx, planCacheKey(id)); ok {
		plan := &models.LoanPlan{}
		if err := json.Unmarshal([]byte(raw), plan); err == nil {
			return plan, nil
		}
		s.log.Warnf("Discarding unreadable cached plan %s", id)
	}

	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(plan); err == nil {
		if err := s.cache.Set(ctx, planCacheKey(id), string(raw), s.config.PlanCacheTTL); err != nil {
			s.log.Warnf("Failed to cache plan %s: %v", id, err)
		}
	}
	return plan, nil
}

// checkPricing warns when a plan lends below the reference rate. Only the
// cached rate is consulted; the scheduler keeps it fresh.
func (s *Service) checkPricing(ctx context.Context, plan *models.LoanPlan) {
	rate, ok := s.cachedReferenceRate(ctx)
	if !ok {
		s.log.Debugf("No reference rate cached, pricing check skipped for plan %s", plan.ID)
		return
	}
	if plan.InterestRate < rate {
		s.log.WithFields(logrus.Fields{
			"plan_id":        plan.ID,
			"interest_rate":  plan.InterestRate,
			"reference_rate": rate,
		}).Warn("Plan priced below reference rate")
	}
}

func (s *Service) invalidatePlan(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, planCacheKey(id)); err != nil {
		s.log.Warnf("Failed to evict cached plan %s: %v", id, err)
	}
}
