package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agrofund/loan-service/internal/models"
)

// MemoryRepository is an in-memory implementation of the repository
// operations, used for local runs without PostgreSQL and in tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[string]models.User
	plans  map[string]models.LoanPlan
	calcs  []models.Calculation
	nextID int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]models.User),
		plans: make(map[string]models.LoanPlan),
		now:   time.Now,
	}
}

func (m *MemoryRepository) Ping() error { return nil }

func (m *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.Email] = *user
	return nil
}

func (m *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &user, nil
}

func (m *MemoryRepository) CreatePlan(_ context.Context, plan *models.LoanPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan.CreatedAt = m.now()
	plan.UpdatedAt = plan.CreatedAt
	m.plans[plan.ID] = *plan
	return nil
}

func (m *MemoryRepository) GetPlan(_ context.Context, id string) (*models.LoanPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return &plan, nil
}

func (m *MemoryRepository) ListPlans(_ context.Context, activeOnly bool) ([]models.LoanPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plans := []models.LoanPlan{}
	for _, p := range m.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.After(plans[j].CreatedAt) })
	return plans, nil
}

func (m *MemoryRepository) UpdatePlan(_ context.Context, plan *models.LoanPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[plan.ID]; !ok {
		return fmt.Errorf("plan %s: %w", plan.ID, ErrNotFound)
	}
	plan.UpdatedAt = m.now()
	m.plans[plan.ID] = *plan
	return nil
}

func (m *MemoryRepository) SetPlanActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	plan.IsActive = active
	plan.UpdatedAt = m.now()
	m.plans[id] = plan
	return nil
}

func (m *MemoryRepository) DeletePlan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	delete(m.plans, id)
	kept := m.calcs[:0]
	for _, c := range m.calcs {
		if c.PlanID != id {
			kept = append(kept, c)
		}
	}
	m.calcs = kept
	return nil
}

func (m *MemoryRepository) SaveCalculation(_ context.Context, calc *models.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	calc.ID = int64(len(m.calcs) + 1)
	calc.CreatedAt = m.now()
	m.calcs = append(m.calcs, *calc)
	return nil
}

func (m *MemoryRepository) ListCalculations(_ context.Context, planID string, limit int) ([]models.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calcs := []models.Calculation{}
	for i := len(m.calcs) - 1; i >= 0 && len(calcs) < limit; i-- {
		if m.calcs[i].PlanID == planID {
			calcs = append(calcs, m.calcs[i])
		}
	}
	return calcs, nil
}
