package models

import "time"

// CalculationRequest asks for a repayment quote on a plan
type CalculationRequest struct {
	PlanID     string  `json:"plan_id" validate:"required,uuid"`
	LoanAmount float64 `json:"loan_amount"`
	Email      string  `json:"email,omitempty" validate:"omitempty,email"`
	StartDate  string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CalculationResult is the repayment quote for a plan and loan amount
type CalculationResult struct {
	PlanName             string           `json:"plan_name"`
	LoanAmount           float64          `json:"loan_amount"`
	InterestRate         float64          `json:"interest_rate"`
	InterestType         InterestType     `json:"interest_type"`
	Duration             Duration         `json:"duration"`
	PaymentFrequency     PaymentFrequency `json:"payment_frequency"`
	LatePenalty          LatePenalty      `json:"late_penalty"`
	NumberOfPayments     int              `json:"number_of_payments"`
	EMIAmount            float64          `json:"emi_amount"`
	TotalInterest        float64          `json:"total_interest"`
	TotalRepaymentAmount float64          `json:"total_repayment_amount"`
}

// Installment represents one scheduled repayment
type Installment struct {
	Number      int       `json:"number"`
	DueDate     time.Time `json:"due_date"`
	Payment     float64   `json:"payment"`
	Principal   float64   `json:"principal"`
	Interest    float64   `json:"interest"`
	Balance     float64   `json:"balance"`
	LatePenalty float64   `json:"late_penalty"`
}

// Quote is a calculation result with its schedule and integrity signature
type Quote struct {
	CalculationResult
	PlanID    string        `json:"plan_id"`
	Schedule  []Installment `json:"schedule"`
	Signature string        `json:"signature"`
}

// Calculation is a stored quote
type Calculation struct {
	ID               int64     `json:"id"`
	PlanID           string    `json:"plan_id"`
	LoanAmount       float64   `json:"loan_amount"`
	NumberOfPayments int       `json:"number_of_payments"`
	EMIAmount        float64   `json:"emi_amount"`
	TotalInterest    float64   `json:"total_interest"`
	TotalRepayment   float64   `json:"total_repayment_amount"`
	Signature        string    `json:"signature"`
	CreatedAt        time.Time `json:"created_at"`
}
