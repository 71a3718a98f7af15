package cardcheckout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

const maxWebhookBodySize = 65536

type Config struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
	FeePolicy     pricing.ServiceFeePolicy
}

type webService struct {
	logger        mylog.Logger
	baseURL       string
	webhookSecret string
	service       *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, attempts *checkoutapi.Attempts, payer Payer, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("cardcheckout")
	return &webService{
		logger:        logger,
		baseURL:       cfg.BaseURL,
		webhookSecret: cfg.WebhookSecret,
		service:       newService(cfg.APIKey, logger, attempts, payer, publisher, cfg.FeePolicy),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/checkout/{checkoutUID}/card/session", s.createSession()).Methods("POST")
	router.HandleFunc("/checkout/{checkoutUID}/card", s.startCheckoutPage()).Methods("POST")

	router.HandleFunc("/card/webhook/event", s.webhookNotification()).Methods("POST")

	return nil
}

func (s *webService) createSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		req := CardSessionRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.initiateCardCheckout(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

// startCheckoutPage is the form variant: the browser is sent to stripe right away
func (s *webService) startCheckoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		checkout, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.initiateCardCheckout(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), CardSessionRequest{
			PriceID:       checkout.PriceID,
			Quantity:      checkout.Quantity,
			DishName:      checkout.DishName,
			CustomerEmail: checkout.CustomerEmail,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		http.Redirect(w, r, resp.URL, http.StatusSeeOther)
	}
}

func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		event, err := s.parseEvent(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		err = s.service.webhookNotification(c, event)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}

// parseEvent only verifies the signature when a secret is configured
func (s *webService) parseEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		event := stripe.Event{}
		err := json.Unmarshal(payload, &event)
		if err != nil {
			return stripe.Event{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing stripe event: %s", err))
		}
		return event, nil
	}

	if signature == "" {
		return stripe.Event{}, myerrors.NewAuthenticationError(errMissingSignature)
	}
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, myerrors.NewAuthenticationError(fmt.Errorf("error verifying stripe event: %s", err))
	}
	return event, nil
}
