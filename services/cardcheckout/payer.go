package cardcheckout

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/price"

	"github.com/MarcGrol/homechef/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package cardcheckout -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	GetPrice(ctx context.Context, priceID string) (stripe.Price, error)
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (stripe.CheckoutSession, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

func (p *stripePayer) UseAPIKey(apiKey string) {
	stripe.Key = apiKey
}

func (p *stripePayer) GetPrice(ctx context.Context, priceID string) (stripe.Price, error) {
	pr, err := price.Get(priceID, nil)
	if err != nil {
		return stripe.Price{}, myerrors.NewPaymentError(fmt.Errorf("error fetching stripe price %s: %s", priceID, providerMessage(err)))
	}
	return *pr, nil
}

func (p *stripePayer) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
	s, err := session.New(&params)
	if err != nil {
		return stripe.CheckoutSession{}, myerrors.NewPaymentError(fmt.Errorf("error creating stripe session: %s", providerMessage(err)))
	}

	return *s, nil
}

// GetCheckoutSession includes line items and the receipt of the charge
func (p *stripePayer) GetCheckoutSession(ctx context.Context, sessionID string) (stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items")
	params.AddExpand("payment_intent.latest_charge")

	s, err := session.Get(sessionID, params)
	if err != nil {
		return stripe.CheckoutSession{}, myerrors.NewPaymentError(fmt.Errorf("error fetching stripe session %s: %s", sessionID, providerMessage(err)))
	}

	return *s, nil
}

func providerMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
