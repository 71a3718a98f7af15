package delayedpayment

import (
	"context"
)

//go:generate mockgen -source=payer.go -package delayedpayment -destination payer_mock.go Payer
type Payer interface {
	ProviderName() string
	CreatePayment(ctx context.Context, order PaymentOrder) (ProviderCheckout, error)
	GetPayment(ctx context.Context, reference string) (ProviderPayment, error)
}
