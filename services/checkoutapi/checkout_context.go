package checkoutapi

import (
	"time"

	"github.com/MarcGrol/homechef/services/checkoutevents"
)

type PaymentMethod string

const (
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodMobile  PaymentMethod = "mobile"
	PaymentMethodDelayed PaymentMethod = "delayed"
)

var PaymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodMobile, PaymentMethodDelayed}

// ParsePaymentMethod falls back to card for anything it does not know
func ParsePaymentMethod(s string) PaymentMethod {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m
		}
	}
	return PaymentMethodCard
}

type AttemptState string

const (
	AttemptStateIdle       AttemptState = "idle"
	AttemptStateSubmitting AttemptState = "submitting"
	AttemptStateSettled    AttemptState = "settled"
	AttemptStateError      AttemptState = "error"
)

func NewCheckoutContext(checkoutUID string, now time.Time) CheckoutContext {
	return CheckoutContext{
		CheckoutUID:    checkoutUID,
		CreatedAt:      now,
		PaymentMethod:  PaymentMethodCard,
		AttemptState:   AttemptStateIdle,
		CheckoutStatus: checkoutevents.CheckoutStatusUndefined,
	}
}

// CheckoutContext is everything known about one checkout instance, keyed by its correlation uid.
type CheckoutContext struct {
	CheckoutUID      string
	CreatedAt        time.Time
	LastModified     *time.Time
	PaymentMethod    PaymentMethod
	AttemptState     AttemptState
	AttemptStartedAt *time.Time
	PaymentProvider  string
	// ProviderReference is the order id or instruction uuid at the provider
	ProviderReference string
	// SessionID is the card checkout session, used to find back the receipt
	SessionID             string
	OrderReference        string
	AmountInCents         int64
	Currency              string
	PayerAlias            string
	Message               string `datastore:",noindex"`
	CheckoutStatus        checkoutevents.CheckoutStatus
	CheckoutStatusDetails string
	LastError             string `datastore:",noindex"`
}
