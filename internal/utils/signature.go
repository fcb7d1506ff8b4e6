package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/agrofund/loan-service/internal/models"
)

// GenerateHMAC returns the hex HMAC-SHA256 of the given parts joined with '|'
func GenerateHMAC(secret string, parts ...string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC reports whether signature matches the parts
func VerifyHMAC(secret, signature string, parts ...string) bool {
	expected := GenerateHMAC(secret, parts...)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// QuoteFields lists the quote values covered by a quote signature
func QuoteFields(planID string, res models.CalculationResult) []string {
	return []string{
		planID,
		formatMoney(res.LoanAmount),
		strconv.Itoa(res.NumberOfPayments),
		formatMoney(res.EMIAmount),
		formatMoney(res.TotalInterest),
		formatMoney(res.TotalRepaymentAmount),
	}
}

// SignQuote signs the quote values so a stored or e-mailed quote can be checked later
func SignQuote(secret, planID string, res models.CalculationResult) string {
	return GenerateHMAC(secret, QuoteFields(planID, res)...)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
