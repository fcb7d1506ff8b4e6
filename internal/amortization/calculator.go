// Package amortization computes repayment quotes for loan plans.
//
// Everything here is pure arithmetic over its arguments, so the functions
// are safe to call from any number of goroutines.
package amortization

import (
	"fmt"
	"math"

	"github.com/agrofund/loan-service/internal/models"
)

// Compute returns the repayment quote for borrowing loanAmount under plan.
func Compute(plan models.LoanPlan, loanAmount float64) (models.CalculationResult, error) {
	if loanAmount <= 0 || loanAmount < plan.MinLoanAmount || loanAmount > plan.MaxLoanAmount {
		return models.CalculationResult{}, &AmountError{Amount: loanAmount, Min: plan.MinLoanAmount, Max: plan.MaxLoanAmount}
	}

	months, err := durationInMonths(plan.Duration)
	if err != nil {
		return models.CalculationResult{}, err
	}
	payments, periodsPerYear, err := paymentPeriods(plan.PaymentFrequency, months)
	if err != nil {
		return models.CalculationResult{}, err
	}

	emi, total, interest, err := repayment(plan.InterestType, loanAmount, plan.InterestRate, months, payments, periodsPerYear)
	if err != nil {
		return models.CalculationResult{}, err
	}

	return models.CalculationResult{
		PlanName:             plan.Name,
		LoanAmount:           loanAmount,
		InterestRate:         plan.InterestRate,
		InterestType:         plan.InterestType,
		Duration:             plan.Duration,
		PaymentFrequency:     plan.PaymentFrequency,
		LatePenalty:          plan.LatePenalty,
		NumberOfPayments:     int(math.Round(payments)),
		EMIAmount:            roundTo2Decimals(emi),
		TotalInterest:        roundTo2Decimals(interest),
		TotalRepaymentAmount: roundTo2Decimals(total),
	}, nil
}

// repayment returns the unrounded periodic payment, total repaid and total interest.
func repayment(kind models.InterestType, principal, rate, months, payments, periodsPerYear float64) (emi, total, interest float64, err error) {
	switch kind {
	case models.InterestFlat, models.InterestSimple:
		interest = principal * (rate / 100) * (months / 12)
		total = principal + interest
		emi = total / payments
	case models.InterestReducing, models.InterestCompound:
		periodicRate := (rate / 100) / periodsPerYear
		if periodicRate > 0 {
			growth := math.Pow(1+periodicRate, payments)
			emi = principal * periodicRate * growth / (growth - 1)
		} else {
			emi = principal / payments
		}
		total = emi * payments
		interest = total - principal
	default:
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedInterestType, kind)
	}
	return emi, total, interest, nil
}

func durationInMonths(d models.Duration) (float64, error) {
	switch d.Unit {
	case models.UnitDays:
		return d.Value / 30, nil
	case models.UnitWeeks:
		return d.Value / 4, nil
	case models.UnitMonths:
		return d.Value, nil
	case models.UnitYears:
		return d.Value * 12, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDurationUnit, d.Unit)
}

// paymentPeriods returns the number of payments over months and the number
// of payment periods in a year.
func paymentPeriods(f models.PaymentFrequency, months float64) (payments, perYear float64, err error) {
	switch f {
	case models.FrequencyWeekly:
		return months * 4, 52, nil
	case models.FrequencyBiweekly:
		return months * 2, 26, nil
	case models.FrequencyMonthly:
		return months, 12, nil
	case models.FrequencyQuarterly:
		return months / 3, 4, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedPaymentFrequency, f)
}

// PaymentCount returns the number of installments d produces at frequency
// f, rounded to the nearest whole payment.
func PaymentCount(d models.Duration, f models.PaymentFrequency) (float64, error) {
	months, err := durationInMonths(d)
	if err != nil {
		return 0, err
	}
	payments, _, err := paymentPeriods(f, months)
	if err != nil {
		return 0, err
	}
	return math.Round(payments), nil
}

func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}
