package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrofund/loan-service/internal/cache"
	"github.com/agrofund/loan-service/internal/config"
	"github.com/agrofund/loan-service/internal/middleware"
	"github.com/agrofund/loan-service/internal/models"
	"github.com/agrofund/loan-service/internal/repository"
	"github.com/agrofund/loan-service/internal/service"
)

type stubRates struct {
	rate float64
	err  error
}

func (s stubRates) GetKeyRate(context.Context) (float64, error) {
	return s.rate, s.err
}

type testServer struct {
	router *mux.Router
	admin  string
	farmer string
}

func newTestServer(t *testing.T, rates stubRates, limit int) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:    "jwt-secret",
		JWTTTL:       time.Hour,
		HMACSecret:   "hmac-secret",
		PlanCacheTTL: time.Minute,
		RateCacheTTL: time.Hour,
		AdminEmails:  []string{"admin@agrofund.org"},
	}
	svc := service.NewService(repository.NewMemoryRepository(), cache.NewMemoryCache(), rates, nil, log, cfg)
	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	ts := &testServer{router: NewRouter(NewHandler(svc, log), svc, limiter)}
	ts.admin = ts.login(t, "admin", "admin@agrofund.org")
	ts.farmer = ts.login(t, "farmer", "farmer@example.com")
	return ts
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, username, email string) string {
	t.Helper()
	rec := ts.do(http.MethodPost, "/register", "", models.RegisterInput{Username: username, Email: email, Password: "harvest-2026"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/login", "", models.LoginInput{Email: email, Password: "harvest-2026"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func seedInput() models.PlanInput {
	return models.PlanInput{
		Name:             "Seasonal seed loan",
		MinLoanAmount:    1000,
		MaxLoanAmount:    10000,
		InterestRate:     12,
		InterestType:     models.InterestFlat,
		Duration:         models.Duration{Value: 12, Unit: models.UnitMonths},
		PaymentFrequency: models.FrequencyMonthly,
		LatePenalty:      models.LatePenalty{Type: models.PenaltyPercentage, Value: 2},
	}
}

func (ts *testServer) createPlan(t *testing.T) models.LoanPlan {
	t.Helper()
	rec := ts.do(http.MethodPost, "/plans", ts.admin, seedInput())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan models.LoanPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.True(t, plan.IsActive)
	return plan
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCalculate(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)
	plan := ts.createPlan(t)

	rec := ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", map[string]interface{}{
		"loan_amount": 5000,
		"start_date":  "2026-01-15",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote models.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, plan.ID, quote.PlanID)
	assert.Equal(t, 12, quote.NumberOfPayments)
	assert.Equal(t, 466.67, quote.EMIAmount)
	assert.Equal(t, 600.0, quote.TotalInterest)
	assert.Equal(t, 5600.0, quote.TotalRepaymentAmount)
	assert.NotEmpty(t, quote.Signature)
	require.Len(t, quote.Schedule, 12)
	assert.Equal(t, "2026-02-15", quote.Schedule[0].DueDate.Format("2006-01-02"))

	t.Run("history is admin only", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/plans/"+plan.ID+"/calculations", ts.farmer, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(http.MethodGet, "/plans/"+plan.ID+"/calculations", ts.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var calcs []models.Calculation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calcs))
		require.Len(t, calcs, 1)
		assert.Equal(t, quote.Signature, calcs[0].Signature)
	})
}

func TestCalculate_Errors(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)
	plan := ts.createPlan(t)

	t.Run("amount out of range", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", map[string]interface{}{"loan_amount": 500})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "loan amount must be between 1000 and 10000", decodeError(t, rec).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/plans/"+plan.ID+"/calculate", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad email", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", map[string]interface{}{"loan_amount": 5000, "email": "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		out := decodeError(t, rec)
		require.Len(t, out.Fields, 1)
		assert.Equal(t, "email", out.Fields[0].Field)
	})

	t.Run("unknown plan", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/plans/6f1c7c36-0d7e-4a43-9d6c-0a4e1e1f9b10/calculate", "", map[string]interface{}{"loan_amount": 5000})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive plan", func(t *testing.T) {
		rec := ts.do(http.MethodPatch, "/plans/"+plan.ID+"/toggle", ts.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", map[string]interface{}{"loan_amount": 5000})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCalculate_RateLimited(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 2)
	plan := ts.createPlan(t)

	body := map[string]interface{}{"loan_amount": 5000}
	for i := 0; i < 2; i++ {
		rec := ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// other routes are not limited
	rec = ts.do(http.MethodGet, "/plans/"+plan.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlanAdministration(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)

	t.Run("requires a token", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/plans", "", seedInput())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.do(http.MethodPost, "/plans", "not-a-token", seedInput())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("requires the admin role", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/plans", ts.farmer, seedInput())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		in := seedInput()
		in.Name = "   "
		in.InterestRate = 0
		rec := ts.do(http.MethodPost, "/plans", ts.admin, in)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		out := decodeError(t, rec)
		assert.Equal(t, "validation failed", out.Error)
		require.Len(t, out.Fields, 2)
		assert.Equal(t, "interest_rate", out.Fields[0].Field)
		assert.Equal(t, "name", out.Fields[1].Field)
		assert.Equal(t, "this field cannot be blank", out.Fields[1].Error)
	})

	plan := ts.createPlan(t)

	t.Run("update", func(t *testing.T) {
		in := seedInput()
		in.Name = "Irrigation loan"
		in.InterestType = models.InterestReducing
		rec := ts.do(http.MethodPut, "/plans/"+plan.ID, ts.admin, in)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = ts.do(http.MethodGet, "/plans/"+plan.ID, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.LoanPlan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Irrigation loan", got.Name)
		assert.Equal(t, models.InterestReducing, got.InterestType)
	})

	t.Run("toggle hides the plan from farmers", func(t *testing.T) {
		rec := ts.do(http.MethodPatch, "/plans/"+plan.ID+"/toggle", ts.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodGet, "/plans/"+plan.ID, ts.farmer, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = ts.do(http.MethodGet, "/plans/"+plan.ID, ts.admin, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(http.MethodGet, "/plans", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var plans []models.LoanPlan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
		assert.Empty(t, plans)

		rec = ts.do(http.MethodGet, "/plans?all=true", ts.farmer, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(http.MethodGet, "/plans?all=true", ts.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
		assert.Len(t, plans, 1)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/plans/42", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.do(http.MethodDelete, "/plans/"+plan.ID, ts.admin, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(http.MethodDelete, "/plans/"+plan.ID, ts.admin, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRegisterAndLogin_Errors(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)

	rec := ts.do(http.MethodPost, "/register", "", models.RegisterInput{Username: "again", Email: "farmer@example.com", Password: "harvest-2026"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/login", "", models.LoginInput{Email: "farmer@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/register", "", models.RegisterInput{Username: "x", Email: "x@example.com", Password: "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decodeError(t, rec).Fields[0].Field)
}

func TestKeyRateAndHealth(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)

	rec := ts.do(http.MethodGet, "/key-rate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 21.0, out["key_rate"])

	rec = ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	failing := newTestServer(t, stubRates{err: errors.New("upstream down")}, 100)
	rec = failing.do(http.MethodGet, "/key-rate", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreatePlan_DurationWithoutInstallments(t *testing.T) {
	ts := newTestServer(t, stubRates{rate: 21}, 100)

	in := seedInput()
	in.Duration = models.Duration{Value: 1, Unit: models.UnitMonths}
	in.PaymentFrequency = models.FrequencyQuarterly
	rec := ts.do(http.MethodPost, "/plans", ts.admin, in)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeError(t, rec)
	require.Len(t, out.Fields, 1)
	assert.Equal(t, "duration", out.Fields[0].Field)

	in.Duration = models.Duration{Value: 45, Unit: models.UnitDays}
	in.PaymentFrequency = models.FrequencyMonthly
	rec = ts.do(http.MethodPost, "/plans", ts.admin, in)
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan models.LoanPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))

	rec = ts.do(http.MethodPost, "/plans/"+plan.ID+"/calculate", "", map[string]interface{}{"loan_amount": 5000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote models.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Len(t, quote.Schedule, 2)
}
