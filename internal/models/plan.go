package models

import "time"

// InterestType selects how interest accrues on a plan
type InterestType string

const (
	InterestFlat     InterestType = "flat"
	InterestSimple   InterestType = "simple"
	InterestReducing InterestType = "reducing"
	InterestCompound InterestType = "compound"
)

// Valid reports whether t is one of the known interest types
func (t InterestType) Valid() bool {
	switch t {
	case InterestFlat, InterestSimple, InterestReducing, InterestCompound:
		return true
	}
	return false
}

// DurationUnit is the unit of a plan duration
type DurationUnit string

const (
	UnitDays   DurationUnit = "days"
	UnitWeeks  DurationUnit = "weeks"
	UnitMonths DurationUnit = "months"
	UnitYears  DurationUnit = "years"
)

// Valid reports whether u is one of the known duration units
func (u DurationUnit) Valid() bool {
	switch u {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}

// PaymentFrequency is how often an installment is due
type PaymentFrequency string

const (
	FrequencyWeekly    PaymentFrequency = "weekly"
	FrequencyBiweekly  PaymentFrequency = "biweekly"
	FrequencyMonthly   PaymentFrequency = "monthly"
	FrequencyQuarterly PaymentFrequency = "quarterly"
)

// Valid reports whether f is one of the known payment frequencies
func (f PaymentFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// PenaltyType is the kind of late payment penalty
type PenaltyType string

const (
	PenaltyPercentage PenaltyType = "percentage"
	PenaltyFixed      PenaltyType = "fixed"
)

// Valid reports whether p is one of the known penalty types
func (p PenaltyType) Valid() bool {
	return p == PenaltyPercentage || p == PenaltyFixed
}

// Duration is the total length of a plan. Together with the payment
// frequency it must yield between 1 and 5200 installments.
type Duration struct {
	Value float64      `json:"value" validate:"gt=0"`
	Unit  DurationUnit `json:"unit" validate:"required,oneof=days weeks months years"`
}

// LatePenalty describes the charge applied to a missed installment
type LatePenalty struct {
	Type  PenaltyType `json:"type" validate:"required,oneof=percentage fixed"`
	Value float64     `json:"value" validate:"gte=0"`
}

// Amount returns the penalty charged on a missed installment of the given size
func (p LatePenalty) Amount(installment float64) float64 {
	switch p.Type {
	case PenaltyPercentage:
		return installment * p.Value / 100
	case PenaltyFixed:
		return p.Value
	}
	return 0
}

// LoanPlan represents a microloan plan offered to farmers
type LoanPlan struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	MinLoanAmount    float64          `json:"min_loan_amount"`
	MaxLoanAmount    float64          `json:"max_loan_amount"`
	InterestRate     float64          `json:"interest_rate"`
	InterestType     InterestType     `json:"interest_type"`
	Duration         Duration         `json:"duration"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`
	LatePenalty      LatePenalty      `json:"late_penalty"`
	IsActive         bool             `json:"is_active"`
	CreatedBy        int64            `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PlanInput is the validated write shape for creating or updating a plan
type PlanInput struct {
	Name             string           `json:"name" validate:"notblank,max=120"`
	Description      string           `json:"description" validate:"max=2000"`
	MinLoanAmount    float64          `json:"min_loan_amount" validate:"gt=0"`
	MaxLoanAmount    float64          `json:"max_loan_amount" validate:"gt=0,gtefield=MinLoanAmount"`
	InterestRate     float64          `json:"interest_rate" validate:"min=1,max=100"`
	InterestType     InterestType     `json:"interest_type" validate:"required,oneof=flat simple reducing compound"`
	Duration         Duration         `json:"duration"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency" validate:"required,oneof=weekly biweekly monthly quarterly"`
	LatePenalty      LatePenalty      `json:"late_penalty"`
	IsActive         *bool            `json:"is_active"`
}

// Apply copies the input fields onto plan
func (in PlanInput) Apply(plan *LoanPlan) {
	plan.Name = in.Name
	plan.Description = in.Description
	plan.MinLoanAmount = in.MinLoanAmount
	plan.MaxLoanAmount = in.MaxLoanAmount
	plan.InterestRate = in.InterestRate
	plan.InterestType = in.InterestType
	plan.Duration = in.Duration
	plan.PaymentFrequency = in.PaymentFrequency
	plan.LatePenalty = in.LatePenalty
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
}
