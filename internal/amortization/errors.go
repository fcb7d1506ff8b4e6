package amortization

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidAmount               = errors.New("invalid loan amount")
	ErrUnsupportedInterestType     = errors.New("unsupported interest type")
	ErrUnsupportedDurationUnit     = errors.New("unsupported duration unit")
	ErrUnsupportedPaymentFrequency = errors.New("unsupported payment frequency")
	ErrNoInstallments              = errors.New("plan duration is shorter than one payment period")
	ErrTooManyInstallments         = errors.New("plan has too many installments")
)

// MaxInstallments bounds the length of a repayment schedule.
const MaxInstallments = 5200

// AmountError reports a loan amount outside the plan bounds.
// It matches ErrInvalidAmount with errors.Is.
type AmountError struct {
	Amount float64
	Min    float64
	Max    float64
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("loan amount must be between %s and %s", formatAmount(e.Min), formatAmount(e.Max))
}

func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
