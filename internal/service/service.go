package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/cache"
	"github.com/agrofund/loan-service/internal/config"
	"github.com/agrofund/loan-service/internal/models"
	"github.com/agrofund/loan-service/internal/repository"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrInvalidID          = errors.New("invalid plan id")
	ErrPlanInactive       = errors.New("plan is not active")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("admin role required")
)

// Store is the persistence the service needs; *repository.Repository implements it
type Store interface {
	Ping() error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreatePlan(ctx context.Context, plan *models.LoanPlan) error
	GetPlan(ctx context.Context, id string) (*models.LoanPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]models.LoanPlan, error)
	UpdatePlan(ctx context.Context, plan *models.LoanPlan) error
	SetPlanActive(ctx context.Context, id string, active bool) error
	DeletePlan(ctx context.Context, id string) error

	SaveCalculation(ctx context.Context, calc *models.Calculation) error
	ListCalculations(ctx context.Context, planID string, limit int) ([]models.Calculation, error)
}

// Mailer delivers quote e-mails
type Mailer interface {
	SendQuote(to string, q models.Quote) error
}

// RateProvider returns the current reference rate in percent
type RateProvider interface {
	GetKeyRate(ctx context.Context) (float64, error)
}

// Service handles business logic
type Service struct {
	store  Store
	cache  cache.Cache
	rates  RateProvider
	mailer Mailer
	log    *logrus.Logger
	config *config.Config
	now    func() time.Time
}

// NewService initializes a new service. mailer may be nil, in which case
// quote e-mails are skipped.
func NewService(store Store, c cache.Cache, rates RateProvider, mailer Mailer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		cache:  c,
		rates:  rates,
		mailer: mailer,
		log:    log,
		config: cfg,
		now:    time.Now,
	}
}

// Health reports whether the backing store is reachable
func (s *Service) Health() error {
	return s.store.Ping()
}
