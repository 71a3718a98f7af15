package orders

import (
	"time"

	"github.com/MarcGrol/homechef/services/checkoutevents"
)

// Order is the back-office view of a checkout: built purely from checkout events.
type Order struct {
	CheckoutUID    string
	OrderReference string
	ProviderName   string
	PaymentMethod  string
	// ProviderReference identifies the payment at the provider
	ProviderReference string
	AmountInCents     int64
	Currency          string
	Status            checkoutevents.CheckoutStatus
	StatusDetails     string
	CreatedAt         time.Time
	LastModified      *time.Time
	Done              bool
}
