package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/config"
	"github.com/agrofund/loan-service/internal/models"
)

// scheduleLines caps how many installments are listed in a quote e-mail
const scheduleLines = 6

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// QuoteBody renders the plain-text body of a quote e-mail
func QuoteBody(q models.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear borrower,\n\n")
	fmt.Fprintf(&b, "Here is your repayment quote for the plan \"%s\".\n\n", q.PlanName)
	fmt.Fprintf(&b, "Loan amount: %.2f\n", q.LoanAmount)
	fmt.Fprintf(&b, "Interest: %.2f%% (%s)\n", q.InterestRate, q.InterestType)
	fmt.Fprintf(&b, "Duration: %g %s, paid %s\n", q.Duration.Value, q.Duration.Unit, q.PaymentFrequency)
	fmt.Fprintf(&b, "Number of payments: %d\n", q.NumberOfPayments)
	fmt.Fprintf(&b, "Installment amount: %.2f\n", q.EMIAmount)
	fmt.Fprintf(&b, "Total interest: %.2f\n", q.TotalInterest)
	fmt.Fprintf(&b, "Total repayment: %.2f\n", q.TotalRepaymentAmount)

	if len(q.Schedule) > 0 {
		fmt.Fprintf(&b, "\nFirst installments:\n")
		for i, it := range q.Schedule {
			if i == scheduleLines {
				fmt.Fprintf(&b, "  ... %d more\n", len(q.Schedule)-scheduleLines)
				break
			}
			fmt.Fprintf(&b, "  #%d due %s: %.2f\n", it.Number, it.DueDate.Format("2006-01-02"), it.Payment)
		}
	}

	switch q.LatePenalty.Type {
	case models.PenaltyPercentage:
		fmt.Fprintf(&b, "\nLate payments incur a penalty of %.2f%% of the installment.\n", q.LatePenalty.Value)
	case models.PenaltyFixed:
		fmt.Fprintf(&b, "\nLate payments incur a penalty of %.2f per installment.\n", q.LatePenalty.Value)
	}

	fmt.Fprintf(&b, "\nQuote reference: %s\n", q.Signature)
	b.WriteString("\nBest regards,\nAgroFund")
	return b.String()
}

// SendQuote e-mails a repayment quote
func (s *Sender) SendQuote(to string, q models.Quote) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your repayment quote for %s", q.PlanName)
	e.Text = []byte(QuoteBody(q))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send quote email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
