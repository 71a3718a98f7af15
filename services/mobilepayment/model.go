package mobilepayment

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/services/checkoutevents"
)

const (
	providerName     = "swish"
	currencySEK      = "SEK"
	maxMessageLength = 50
	countryCode      = "46"
	trunkPrefix      = "0"
)

var (
	payerAliasPattern = regexp.MustCompile(`^46\d{9}$`)
	nonDigits         = regexp.MustCompile(`\D`)

	errInvalidPayerAlias = errors.New("phone number must be a swedish mobile number like 0701234567")
)

// NormalizePayerAlias turns a locally entered phone number into the international form Swish expects
func NormalizePayerAlias(input string) string {
	digits := nonDigits.ReplaceAllString(input, "")
	switch {
	case strings.HasPrefix(digits, countryCode):
		return digits
	case strings.HasPrefix(digits, trunkPrefix):
		return countryCode + strings.TrimPrefix(digits, trunkPrefix)
	default:
		return digits
	}
}

func ValidatePayerAlias(alias string) error {
	if !payerAliasPattern.MatchString(alias) {
		return myerrors.NewInvalidInputError(errInvalidPayerAlias)
	}
	return nil
}

type MobilePaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	PayerAlias string          `json:"payerAlias"`
	Message    string          `json:"message"`
	OrderID    string          `json:"orderId,omitempty"`
}

// Validate expects an already normalized payer alias
func (r MobilePaymentRequest) Validate() error {
	err := ValidatePayerAlias(r.PayerAlias)
	if err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return myerrors.NewInvalidInputErrorf("amount must be positive, got %s", r.Amount)
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return myerrors.NewInvalidInputErrorf("amount %s has more than two decimals", r.Amount)
	}
	if utf8.RuneCountInString(r.Message) > maxMessageLength {
		return myerrors.NewInvalidInputErrorf("message must be at most %d characters", maxMessageLength)
	}
	return nil
}

type MobilePaymentResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

// FormatAmount renders an amount the way the widget displays it: "245.00 kr"
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " kr"
}

// SwishPaymentRequest is the body of a Swish commerce v2 payment request
type SwishPaymentRequest struct {
	PayeePaymentReference string `json:"payeePaymentReference,omitempty"`
	CallbackURL           string `json:"callbackUrl"`
	PayerAlias            string `json:"payerAlias"`
	PayeeAlias            string `json:"payeeAlias"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message,omitempty"`
}

// SwishPayment is both the state returned by GET and the body of a callback
type SwishPayment struct {
	ID                    string `json:"id"`
	PayeePaymentReference string `json:"payeePaymentReference,omitempty"`
	PaymentReference      string `json:"paymentReference,omitempty"`
	CallbackURL           string `json:"callbackUrl,omitempty"`
	PayerAlias            string `json:"payerAlias,omitempty"`
	PayeeAlias            string `json:"payeeAlias,omitempty"`
	Amount                string `json:"amount,omitempty"`
	Currency              string `json:"currency,omitempty"`
	Message               string `json:"message,omitempty"`
	Status                string `json:"status"`
	ErrorCode             string `json:"errorCode,omitempty"`
	ErrorMessage          string `json:"errorMessage,omitempty"`
}

const (
	SwishStatusCreated   = "CREATED"
	SwishStatusPaid      = "PAID"
	SwishStatusDeclined  = "DECLINED"
	SwishStatusError     = "ERROR"
	SwishStatusCancelled = "CANCELLED"
)

func classifySwishStatus(status string) checkoutevents.CheckoutStatus {
	switch status {
	case SwishStatusPaid:
		return checkoutevents.CheckoutStatusSuccess
	case SwishStatusCreated:
		return checkoutevents.CheckoutStatusPending
	case SwishStatusDeclined, SwishStatusCancelled:
		return checkoutevents.CheckoutStatusCancelled
	case SwishStatusError:
		return checkoutevents.CheckoutStatusFailed
	default:
		return checkoutevents.CheckoutStatusOther
	}
}

func statusDetailsOf(payment SwishPayment) string {
	if payment.ErrorCode == "" {
		return payment.Status
	}
	return payment.Status + ": " + payment.ErrorCode + " " + payment.ErrorMessage
}
