package delayedpayment

import (
	"context"
	"fmt"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

const mollieProviderName = "mollie"

// molliePayer offers pay-later through the mollie hosted checkout; it never returns an html snippet.
type molliePayer struct {
	client *mollie.Client
}

func NewMolliePayer(apiKey string) (Payer, error) {
	config := mollie.NewAPITestingConfig(true)

	client, err := mollie.NewClient(nil, config)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error creating mollie client: %s", err))
	}
	client.WithAuthenticationValue(apiKey)

	return &molliePayer{
		client: client,
	}, nil
}

func (p *molliePayer) ProviderName() string {
	return mollieProviderName
}

func (p *molliePayer) CreatePayment(ctx context.Context, order PaymentOrder) (ProviderCheckout, error) {
	_, payment, err := p.client.Payments.Create(ctx, toMolliePayment(order), nil)
	if err != nil {
		return ProviderCheckout{}, myerrors.NewPaymentError(fmt.Errorf("error creating mollie payment: %s", err))
	}

	return ProviderCheckout{
		Reference:   payment.ID,
		RedirectURL: checkoutLinkOf(payment),
	}, nil
}

func (p *molliePayer) GetPayment(ctx context.Context, reference string) (ProviderPayment, error) {
	_, payment, err := p.client.Payments.Get(ctx, reference, &mollie.PaymentOptions{})
	if err != nil {
		return ProviderPayment{}, myerrors.NewPaymentError(fmt.Errorf("error getting mollie payment %s: %s", reference, err))
	}

	return ProviderPayment{
		Reference:      payment.ID,
		Method:         string(payment.Method),
		Status:         classifyMollieStatus(payment.Status),
		ProviderStatus: payment.Status,
		RedirectURL:    checkoutLinkOf(payment),
	}, nil
}

func toMolliePayment(order PaymentOrder) mollie.Payment {
	return mollie.Payment{
		Description:  order.Description,
		RedirectURL:  order.ConfirmationURL,
		CancelURL:    order.CancelURL,
		WebhookURL:   order.NotificationURL,
		BillingEmail: order.Email,
		Locale:       "sv_SE",
		Metadata: map[string]string{
			"checkoutUID": order.CheckoutUID,
		},
		Amount: &mollie.Amount{
			Currency: order.Currency,
			Value:    pricing.FromMinor(order.Amount).StringFixed(2),
		},
	}
}

func checkoutLinkOf(payment *mollie.Payment) string {
	if payment == nil || payment.Links.Checkout == nil {
		return ""
	}
	return payment.Links.Checkout.Href
}

func classifyMollieStatus(mollieStatus string) checkoutevents.CheckoutStatus {
	switch mollieStatus {
	case "paid", "authorized":
		return checkoutevents.CheckoutStatusSuccess
	case "open", "pending":
		return checkoutevents.CheckoutStatusPending
	case "canceled":
		return checkoutevents.CheckoutStatusCancelled
	case "failed":
		return checkoutevents.CheckoutStatusFailed
	case "expired":
		return checkoutevents.CheckoutStatusExpired
	default:
		return checkoutevents.CheckoutStatusOther
	}
}
