package confirmation

import (
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

type SessionSource string

const (
	SessionSourceNone    SessionSource = "none"
	SessionSourceQuery   SessionSource = "query"
	SessionSourceContext SessionSource = "context"
)

// ResolveSessionID lets the url win over what was remembered for the checkout
func ResolveSessionID(queryValue string, checkoutContext *checkoutapi.CheckoutContext) (string, SessionSource) {
	if queryValue != "" {
		return queryValue, SessionSourceQuery
	}
	if checkoutContext != nil && checkoutContext.SessionID != "" {
		return checkoutContext.SessionID, SessionSourceContext
	}
	return "", SessionSourceNone
}

type VerifyRequest struct {
	SessionID string `json:"sessionId"`
}

// Receipt amounts are in minor units, like the provider reports them
type Receipt struct {
	SessionID        string                    `json:"session_id"`
	AmountTotal      int64                     `json:"amount_total"`
	Currency         string                    `json:"currency"`
	PaymentStatus    string                    `json:"payment_status"`
	CustomerEmail    string                    `json:"customer_email"`
	ReceiptURL       string                    `json:"receipt_url,omitempty"`
	LineItems        []ReceiptLine             `json:"line_items,omitempty"`
	CommissionReport *pricing.CommissionReport `json:"commission_report,omitempty"`
	DishName         string                    `json:"-"`
}

type ReceiptLine struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
}

func (r Receipt) IsPaid() bool {
	return r.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// receiptOf converts an expanded checkout session
func receiptOf(session stripe.CheckoutSession, commission pricing.CommissionPolicy) Receipt {
	receipt := Receipt{
		SessionID:     session.ID,
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToUpper(string(session.Currency)),
		PaymentStatus: string(session.PaymentStatus),
		CustomerEmail: customerEmailOf(session),
		DishName:      session.Metadata["dishName"],
	}

	if session.PaymentIntent != nil && session.PaymentIntent.LatestCharge != nil {
		receipt.ReceiptURL = session.PaymentIntent.LatestCharge.ReceiptURL
	}

	if session.LineItems != nil {
		for _, item := range session.LineItems.Data {
			if item == nil {
				continue
			}
			receipt.LineItems = append(receipt.LineItems, ReceiptLine{
				Description: item.Description,
				Quantity:    item.Quantity,
				AmountTotal: item.AmountTotal,
			})
		}
	}

	if receipt.IsPaid() {
		report := commission.Split(pricing.FromMinor(session.AmountTotal))
		receipt.CommissionReport = &report
	}

	return receipt
}

func customerEmailOf(session stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func formatMinor(amount int64, currency string) string {
	return pricing.FromMinor(amount).StringFixed(2) + " " + currency
}
