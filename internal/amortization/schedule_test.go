package amortization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrofund/loan-service/internal/models"
)

var scheduleStart = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

func sumPrincipal(items []models.Installment) float64 {
	var total float64
	for _, it := range items {
		total += it.Principal
	}
	return total
}

func TestSchedule_Flat(t *testing.T) {
	items, err := Schedule(testPlan(models.InterestFlat), 5000, scheduleStart)
	require.NoError(t, err)
	require.Len(t, items, 12)

	first := items[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, 416.67, first.Principal)
	assert.Equal(t, 50.0, first.Interest)
	assert.Equal(t, 466.67, first.Payment)
	assert.Equal(t, 9.33, first.LatePenalty)

	last := items[11]
	assert.Equal(t, 12, last.Number)
	assert.Equal(t, time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC), last.DueDate)
	assert.Equal(t, 416.63, last.Principal)
	assert.Equal(t, 0.0, last.Balance)
	assert.InDelta(t, 5000, sumPrincipal(items), 1e-6)
}

func TestSchedule_Reducing(t *testing.T) {
	items, err := Schedule(testPlan(models.InterestReducing), 5000, scheduleStart)
	require.NoError(t, err)
	require.Len(t, items, 12)

	assert.Equal(t, 50.0, items[0].Interest)
	assert.Equal(t, 394.24, items[0].Principal)
	assert.Equal(t, 444.24, items[0].Payment)
	assert.Equal(t, 4605.76, items[0].Balance)

	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i].Interest, items[i-1].Interest, "interest should fall as the balance is repaid")
	}
	assert.Equal(t, 0.0, items[11].Balance)
	assert.InDelta(t, 5000, sumPrincipal(items), 1e-6)
}

func TestSchedule_DueDates(t *testing.T) {
	tests := []struct {
		freq   models.PaymentFrequency
		second time.Time
	}{
		{models.FrequencyWeekly, time.Date(2026, time.January, 29, 0, 0, 0, 0, time.UTC)},
		{models.FrequencyBiweekly, time.Date(2026, time.February, 12, 0, 0, 0, 0, time.UTC)},
		{models.FrequencyMonthly, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{models.FrequencyQuarterly, time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			plan := testPlan(models.InterestFlat)
			plan.PaymentFrequency = tt.freq
			items, err := Schedule(plan, 3000, scheduleStart)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(items), 2)
			assert.Equal(t, tt.second, items[1].DueDate)
		})
	}
}

func TestSchedule_FixedPenalty(t *testing.T) {
	plan := testPlan(models.InterestFlat)
	plan.LatePenalty = models.LatePenalty{Type: models.PenaltyFixed, Value: 25}

	items, err := Schedule(plan, 5000, scheduleStart)
	require.NoError(t, err)
	for _, it := range items {
		assert.Equal(t, 25.0, it.LatePenalty)
	}
}

func TestSchedule_TooShort(t *testing.T) {
	plan := testPlan(models.InterestFlat)
	plan.Duration = models.Duration{Value: 30, Unit: models.UnitDays}
	plan.PaymentFrequency = models.FrequencyQuarterly

	_, err := Schedule(plan, 5000, scheduleStart)
	assert.ErrorIs(t, err, ErrNoInstallments)
}

func TestSchedule_PropagatesAmountError(t *testing.T) {
	_, err := Schedule(testPlan(models.InterestFlat), 50, scheduleStart)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func sumPayments(items []models.Installment) float64 {
	var total float64
	for _, it := range items {
		total += it.Payment
	}
	return roundTo2Decimals(total)
}

func TestSchedule_SettlesToQuotedTotal(t *testing.T) {
	tests := []struct {
		name     string
		kind     models.InterestType
		duration models.Duration
		rows     int
		total    float64
		last     models.Installment
	}{
		{"reducing, half period", models.InterestReducing, models.Duration{Value: 45, Unit: models.UnitDays}, 2, 5062.55,
			models.Installment{Payment: 1687.52, Principal: 1674.97, Interest: 12.55}},
		{"flat, half period", models.InterestFlat, models.Duration{Value: 45, Unit: models.UnitDays}, 2, 5075,
			models.Installment{Payment: 2537.5, Principal: 2500, Interest: 37.5}},
		{"reducing, whole periods", models.InterestReducing, models.Duration{Value: 12, Unit: models.UnitMonths}, 12, 5330.93,
			models.Installment{Payment: 444.29, Principal: 439.89, Interest: 4.4}},
		{"flat, whole periods", models.InterestFlat, models.Duration{Value: 12, Unit: models.UnitMonths}, 12, 5600,
			models.Installment{Payment: 466.63, Principal: 416.63, Interest: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(tt.kind)
			plan.Duration = tt.duration

			quote, err := Compute(plan, 5000)
			require.NoError(t, err)
			require.Equal(t, tt.total, quote.TotalRepaymentAmount)

			items, err := Schedule(plan, 5000, scheduleStart)
			require.NoError(t, err)
			require.Len(t, items, tt.rows)
			assert.Equal(t, quote.TotalRepaymentAmount, sumPayments(items))
			assert.InDelta(t, 5000, sumPrincipal(items), 1e-6)

			last := items[len(items)-1]
			assert.Equal(t, tt.last.Payment, last.Payment)
			assert.Equal(t, tt.last.Principal, last.Principal)
			assert.Equal(t, tt.last.Interest, last.Interest)
			assert.Equal(t, 0.0, last.Balance)
		})
	}
}

func TestSchedule_TooLong(t *testing.T) {
	plan := testPlan(models.InterestFlat)
	plan.Duration = models.Duration{Value: 100000, Unit: models.UnitYears}
	plan.PaymentFrequency = models.FrequencyWeekly

	_, err := Schedule(plan, 5000, scheduleStart)
	assert.ErrorIs(t, err, ErrTooManyInstallments)

	plan.Duration = models.Duration{Value: 1300, Unit: models.UnitMonths}
	items, err := Schedule(plan, 5000, scheduleStart)
	require.NoError(t, err)
	assert.Len(t, items, MaxInstallments)
}

func TestPaymentCount(t *testing.T) {
	n, err := PaymentCount(models.Duration{Value: 1, Unit: models.UnitMonths}, models.FrequencyQuarterly)
	require.NoError(t, err)
	assert.Equal(t, 0.0, n)

	n, err = PaymentCount(models.Duration{Value: 45, Unit: models.UnitDays}, models.FrequencyMonthly)
	require.NoError(t, err)
	assert.Equal(t, 2.0, n)

	_, err = PaymentCount(models.Duration{Value: 1, Unit: "decades"}, models.FrequencyMonthly)
	assert.ErrorIs(t, err, ErrUnsupportedDurationUnit)
}
