package mobilepayment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttpclient"
)

//go:generate mockgen -source=payer.go -package mobilepayment -destination payer_mock.go Payer
type Payer interface {
	RequestPayment(ctx context.Context, instructionUUID string, request SwishPaymentRequest) error
	GetPaymentRequest(ctx context.Context, instructionUUID string) (SwishPayment, error)
}

type swishError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type swishPayer struct {
	baseURL    string
	httpClient myhttpclient.HTTPSender
}

// NewSwishPayer expects a sender that is set up with the merchant client certificate
func NewSwishPayer(baseURL string, httpClient myhttpclient.HTTPSender) Payer {
	return &swishPayer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *swishPayer) RequestPayment(ctx context.Context, instructionUUID string, request SwishPaymentRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error marshalling swish payment request: %s", err))
	}

	httpStatus, respBody, err := p.httpClient.Send(ctx, http.MethodPut, p.paymentRequestURL(instructionUUID), body)
	if err != nil {
		return myerrors.NewPaymentError(fmt.Errorf("error requesting swish payment: %s", err))
	}
	if httpStatus != http.StatusCreated {
		return myerrors.NewPaymentError(fmt.Errorf("error requesting swish payment: %s", swishErrorMessage(httpStatus, respBody)))
	}
	return nil
}

func (p *swishPayer) GetPaymentRequest(ctx context.Context, instructionUUID string) (SwishPayment, error) {
	httpStatus, respBody, err := p.httpClient.Send(ctx, http.MethodGet, p.paymentRequestURL(instructionUUID), nil)
	if err != nil {
		return SwishPayment{}, myerrors.NewPaymentError(fmt.Errorf("error fetching swish payment %s: %s", instructionUUID, err))
	}
	if httpStatus == http.StatusNotFound {
		return SwishPayment{}, myerrors.NewNotFoundError(fmt.Errorf("swish payment %s not found", instructionUUID))
	}
	if httpStatus != http.StatusOK {
		return SwishPayment{}, myerrors.NewPaymentError(fmt.Errorf("error fetching swish payment %s: %s", instructionUUID, swishErrorMessage(httpStatus, respBody)))
	}

	payment := SwishPayment{}
	err = json.Unmarshal(respBody, &payment)
	if err != nil {
		return SwishPayment{}, myerrors.NewPaymentError(fmt.Errorf("error parsing swish payment %s: %s", instructionUUID, err))
	}
	return payment, nil
}

func (p *swishPayer) paymentRequestURL(instructionUUID string) string {
	return fmt.Sprintf("%s/api/v2/paymentrequests/%s", p.baseURL, url.PathEscape(instructionUUID))
}

// swishErrorMessage reads the list of errors swish returns on 4xx
func swishErrorMessage(httpStatus int, body []byte) string {
	errs := []swishError{}
	err := json.Unmarshal(body, &errs)
	if err != nil || len(errs) == 0 {
		return fmt.Sprintf("http-status %d", httpStatus)
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, fmt.Sprintf("%s %s", e.ErrorCode, e.ErrorMessage))
	}
	return strings.Join(messages, ", ")
}
