package delayedpayment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

const currencySEK = "SEK"

var errNoCheckoutContent = errors.New("provider responded without checkout content")

// PricedRequest is either a ByID, priced by us, or a ByAmount, priced by the client.
type PricedRequest interface {
	Email() string
	Validate() error
	isPricedRequest()
}

type ByID struct {
	DishID    string
	Quantity  int
	UserEmail string
}

func (r ByID) Email() string { return r.UserEmail }

func (r ByID) Validate() error {
	if r.DishID == "" {
		return myerrors.NewInvalidInputErrorf("missing dishId")
	}
	if r.Quantity < 1 {
		return myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", r.Quantity)
	}
	return nil
}

func (r ByID) isPricedRequest() {}

type ByAmount struct {
	Amount     int64
	Currency   string
	OrderLines []pricing.OrderLine
	UserEmail  string
}

func (r ByAmount) Email() string { return r.UserEmail }

func (r ByAmount) Validate() error {
	if r.Currency != currencySEK {
		return myerrors.NewInvalidInputErrorf("unsupported currency '%s'", r.Currency)
	}
	if len(r.OrderLines) == 0 {
		return myerrors.NewInvalidInputErrorf("missing orderLines")
	}
	for _, line := range r.OrderLines {
		err := line.Validate()
		if err != nil {
			return myerrors.NewInvalidInputError(err)
		}
	}
	total, _ := pricing.TotalOf(r.OrderLines)
	if total != r.Amount {
		return myerrors.NewInvalidInputErrorf("amount %d does not match order lines total %d", r.Amount, total)
	}
	return nil
}

func (r ByAmount) isPricedRequest() {}

type delayedPaymentRequest struct {
	DishID     string              `json:"dishId"`
	Quantity   int                 `json:"quantity"`
	UserEmail  string              `json:"userEmail"`
	Amount     int64               `json:"amount"`
	Currency   string              `json:"currency"`
	OrderLines []pricing.OrderLine `json:"orderLines"`
}

// ParsePricedRequest picks the variant on the presence of dishId
func ParsePricedRequest(data []byte) (PricedRequest, error) {
	req := delayedPaymentRequest{}
	err := json.Unmarshal(data, &req)
	if err != nil {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("error parsing delayed payment request: %s", err))
	}

	if req.DishID != "" {
		return ByID{
			DishID:    req.DishID,
			Quantity:  req.Quantity,
			UserEmail: req.UserEmail,
		}, nil
	}

	return ByAmount{
		Amount:     req.Amount,
		Currency:   req.Currency,
		OrderLines: req.OrderLines,
		UserEmail:  req.UserEmail,
	}, nil
}

// PaymentOrder is what is handed to the provider, amounts in minor units
type PaymentOrder struct {
	CheckoutUID     string
	Description     string
	Currency        string
	Amount          int64
	TaxAmount       int64
	OrderLines      []pricing.OrderLine
	Email           string
	ConfirmationURL string
	CancelURL       string
	NotificationURL string
	TermsURL        string
}

type ProviderCheckout struct {
	Reference   string
	HTMLSnippet string
	RedirectURL string
}

type ProviderPayment struct {
	Reference      string
	Method         string
	Status         checkoutevents.CheckoutStatus
	ProviderStatus string
	HTMLSnippet    string
	RedirectURL    string
}

type OutcomeKind string

const (
	OutcomeEmbedded OutcomeKind = "embedded"
	OutcomeRedirect OutcomeKind = "redirect"
)

type Outcome struct {
	Kind        OutcomeKind
	HTMLSnippet string
	// RedirectURL is the target for OutcomeRedirect and the fullscreen fallback for OutcomeEmbedded
	RedirectURL string
}

// outcomeOf prefers an embedded snippet over a redirect
func outcomeOf(checkout ProviderCheckout, fullscreenURL string) (Outcome, error) {
	if checkout.HTMLSnippet != "" {
		fallback := checkout.RedirectURL
		if fallback == "" {
			fallback = fullscreenURL
		}
		return Outcome{
			Kind:        OutcomeEmbedded,
			HTMLSnippet: checkout.HTMLSnippet,
			RedirectURL: fallback,
		}, nil
	}
	if checkout.RedirectURL != "" {
		return Outcome{
			Kind:        OutcomeRedirect,
			RedirectURL: checkout.RedirectURL,
		}, nil
	}
	return Outcome{}, myerrors.NewPaymentError(errNoCheckoutContent)
}

type DelayedPaymentResponse struct {
	CheckoutURL string `json:"checkout_url,omitempty"`
	HTMLSnippet string `json:"html_snippet,omitempty"`
}

func (o Outcome) Response() DelayedPaymentResponse {
	return DelayedPaymentResponse{
		CheckoutURL: o.RedirectURL,
		HTMLSnippet: o.HTMLSnippet,
	}
}
