package amortization

import (
	"fmt"
	"time"

	"github.com/agrofund/loan-service/internal/models"
)

// Schedule expands the quote for loanAmount under plan into dated
// installments, the first one falling due one payment period after start.
// The last installment settles the remaining principal and brings the
// payments up to the quoted total repayment, so the rows always sum to the
// quote even when the plan length is not a whole number of periods.
func Schedule(plan models.LoanPlan, loanAmount float64, start time.Time) ([]models.Installment, error) {
	quote, err := Compute(plan, loanAmount)
	if err != nil {
		return nil, err
	}
	count, err := PaymentCount(plan.Duration, plan.PaymentFrequency)
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, ErrNoInstallments
	}
	if count > MaxInstallments {
		return nil, fmt.Errorf("%w: %.0f", ErrTooManyInstallments, count)
	}
	n := int(count)
	months, _ := durationInMonths(plan.Duration)
	_, perYear, _ := paymentPeriods(plan.PaymentFrequency, months)
	periodicRate := (plan.InterestRate / 100) / perYear

	installments := make([]models.Installment, 0, n)
	balance := loanAmount
	var paid float64
	for i := 1; i <= n; i++ {
		var principal, interest float64
		switch plan.InterestType {
		case models.InterestFlat, models.InterestSimple:
			principal = loanAmount / float64(n)
			interest = quote.TotalInterest / float64(n)
		case models.InterestReducing, models.InterestCompound:
			interest = balance * periodicRate
			principal = quote.EMIAmount - interest
		}
		interest = roundTo2Decimals(interest)
		principal = roundTo2Decimals(principal)
		if principal > balance || i == n {
			principal = balance
		}
		payment := roundTo2Decimals(principal + interest)
		if i == n {
			payment = roundTo2Decimals(quote.TotalRepaymentAmount - paid)
			interest = roundTo2Decimals(payment - principal)
		}
		paid = roundTo2Decimals(paid + payment)
		balance = roundTo2Decimals(balance - principal)

		installments = append(installments, models.Installment{
			Number:      i,
			DueDate:     dueDate(start, plan.PaymentFrequency, i),
			Payment:     payment,
			Principal:   principal,
			Interest:    interest,
			Balance:     balance,
			LatePenalty: roundTo2Decimals(plan.LatePenalty.Amount(payment)),
		})
	}
	return installments, nil
}

func dueDate(start time.Time, f models.PaymentFrequency, period int) time.Time {
	switch f {
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, 7*period)
	case models.FrequencyBiweekly:
		return start.AddDate(0, 0, 14*period)
	case models.FrequencyQuarterly:
		return start.AddDate(0, 3*period, 0)
	default:
		return start.AddDate(0, period, 0)
	}
}
