package delayedpayment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttpclient"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

const klarnaProviderName = "klarna"

type klarnaOrder struct {
	OrderID          string              `json:"order_id,omitempty"`
	Status           string              `json:"status,omitempty"`
	PurchaseCountry  string              `json:"purchase_country"`
	PurchaseCurrency string              `json:"purchase_currency"`
	Locale           string              `json:"locale"`
	OrderAmount      int64               `json:"order_amount"`
	OrderTaxAmount   int64               `json:"order_tax_amount"`
	OrderLines       []pricing.OrderLine `json:"order_lines"`
	MerchantURLs     *klarnaMerchantURLs `json:"merchant_urls,omitempty"`
	BillingAddress   *klarnaAddress      `json:"billing_address,omitempty"`
	MerchantRef1     string              `json:"merchant_reference1,omitempty"`
	HTMLSnippet      string              `json:"html_snippet,omitempty"`
}

type klarnaMerchantURLs struct {
	Terms        string `json:"terms"`
	Checkout     string `json:"checkout"`
	Confirmation string `json:"confirmation"`
	Push         string `json:"push"`
}

type klarnaAddress struct {
	Email string `json:"email,omitempty"`
}

type klarnaErrorResponse struct {
	ErrorCode     string   `json:"error_code"`
	ErrorMessages []string `json:"error_messages"`
	CorrelationID string   `json:"correlation_id"`
}

type klarnaPayer struct {
	baseURL    string
	httpClient myhttpclient.HTTPSender
}

// NewKlarnaPayer talks to the Klarna checkout api; the sender must authenticate with the merchant credentials.
func NewKlarnaPayer(baseURL string, httpClient myhttpclient.HTTPSender) Payer {
	return &klarnaPayer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *klarnaPayer) ProviderName() string {
	return klarnaProviderName
}

func (p *klarnaPayer) CreatePayment(ctx context.Context, order PaymentOrder) (ProviderCheckout, error) {
	request := klarnaOrder{
		PurchaseCountry:  "SE",
		PurchaseCurrency: order.Currency,
		Locale:           "sv-SE",
		OrderAmount:      order.Amount,
		OrderTaxAmount:   order.TaxAmount,
		OrderLines:       order.OrderLines,
		MerchantURLs: &klarnaMerchantURLs{
			Terms:        order.TermsURL,
			Checkout:     order.CancelURL,
			Confirmation: order.ConfirmationURL,
			// klarna fills in the placeholder
			Push: order.NotificationURL + "?id={checkout.order.id}",
		},
		MerchantRef1: order.CheckoutUID,
	}
	if order.Email != "" {
		request.BillingAddress = &klarnaAddress{Email: order.Email}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return ProviderCheckout{}, myerrors.NewInternalError(fmt.Errorf("error marshalling klarna order: %s", err))
	}

	httpStatus, respBody, err := p.httpClient.Send(ctx, http.MethodPost, p.baseURL+"/checkout/v3/orders", body)
	if err != nil {
		return ProviderCheckout{}, myerrors.NewPaymentError(fmt.Errorf("error creating klarna order: %s", err))
	}
	if httpStatus != http.StatusOK && httpStatus != http.StatusCreated {
		return ProviderCheckout{}, myerrors.NewPaymentError(fmt.Errorf("error creating klarna order: %s", klarnaErrorMessage(httpStatus, respBody)))
	}

	resp := klarnaOrder{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return ProviderCheckout{}, myerrors.NewPaymentError(fmt.Errorf("error parsing klarna order: %s", err))
	}

	return ProviderCheckout{
		Reference:   resp.OrderID,
		HTMLSnippet: resp.HTMLSnippet,
	}, nil
}

func (p *klarnaPayer) GetPayment(ctx context.Context, reference string) (ProviderPayment, error) {
	httpStatus, respBody, err := p.httpClient.Send(ctx, http.MethodGet, p.baseURL+"/checkout/v3/orders/"+url.PathEscape(reference), nil)
	if err != nil {
		return ProviderPayment{}, myerrors.NewPaymentError(fmt.Errorf("error fetching klarna order %s: %s", reference, err))
	}
	if httpStatus == http.StatusNotFound {
		return ProviderPayment{}, myerrors.NewNotFoundError(fmt.Errorf("klarna order %s not found", reference))
	}
	if httpStatus != http.StatusOK {
		return ProviderPayment{}, myerrors.NewPaymentError(fmt.Errorf("error fetching klarna order %s: %s", reference, klarnaErrorMessage(httpStatus, respBody)))
	}

	resp := klarnaOrder{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return ProviderPayment{}, myerrors.NewPaymentError(fmt.Errorf("error parsing klarna order %s: %s", reference, err))
	}

	return ProviderPayment{
		Reference:      resp.OrderID,
		Method:         klarnaProviderName,
		Status:         classifyKlarnaStatus(resp.Status),
		ProviderStatus: resp.Status,
		HTMLSnippet:    resp.HTMLSnippet,
	}, nil
}

func classifyKlarnaStatus(status string) checkoutevents.CheckoutStatus {
	switch status {
	case "checkout_complete":
		return checkoutevents.CheckoutStatusSuccess
	case "checkout_incomplete":
		return checkoutevents.CheckoutStatusPending
	default:
		return checkoutevents.CheckoutStatusOther
	}
}

func klarnaErrorMessage(httpStatus int, body []byte) string {
	resp := klarnaErrorResponse{}
	err := json.Unmarshal(body, &resp)
	if err != nil || len(resp.ErrorMessages) == 0 {
		return fmt.Sprintf("http-status %d", httpStatus)
	}
	return strings.Join(resp.ErrorMessages, ", ")
}
