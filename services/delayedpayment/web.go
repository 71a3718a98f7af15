package delayedpayment

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/services/catalog"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

const maxRequestBodySize = 65536

//go:embed templates
var templateFolder embed.FS
var (
	embeddedPageTemplate   *template.Template
	fullscreenPageTemplate *template.Template
)

func init() {
	embeddedPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/embedded.html"))
	fullscreenPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/fullscreen.html"))
}

type Config struct {
	BaseURL   string
	TaxPolicy pricing.TaxPolicy
}

type webService struct {
	logger  mylog.Logger
	baseURL string
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, attempts *checkoutapi.Attempts, catalog catalog.Catalog, payer Payer, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("delayedpayment")
	return &webService{
		logger:  logger,
		baseURL: cfg.BaseURL,
		service: newService(logger, attempts, catalog, payer, publisher, cfg.TaxPolicy),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/checkout/{checkoutUID}/delayed/payment", s.createPayment()).Methods("POST")
	router.HandleFunc("/checkout/{checkoutUID}/delayed", s.startPaymentPage()).Methods("POST")
	router.HandleFunc("/checkout/{checkoutUID}/delayed/fullscreen", s.fullscreenPage()).Methods("GET")

	router.HandleFunc("/delayed/webhook/event/{checkoutUID}", s.webhookNotification()).Methods("POST")

	return nil
}

func (s *webService) createPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		if !myhttp.IsJSONRequest(r) {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnsupportedMediaTypeError(fmt.Errorf("expected content-type application/json")))
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(err))
			return
		}

		req, err := ParsePricedRequest(body)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		outcome, err := s.service.initiateDelayedPayment(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), req)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, outcome.Response())
	}
}

type embeddedPageInfo struct {
	CheckoutUID   string
	HTMLSnippet   template.HTML
	FullscreenURL string
}

// startPaymentPage either embeds the provider widget or sends the browser to the provider
func (s *webService) startPaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		checkout, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		outcome, err := s.service.initiateDelayedPayment(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), s.pricedRequestOf(checkout))
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		if outcome.Kind == OutcomeRedirect {
			http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = embeddedPageTemplate.Execute(w, embeddedPageInfo{
			CheckoutUID:   checkoutUID,
			HTMLSnippet:   template.HTML(outcome.HTMLSnippet),
			FullscreenURL: outcome.RedirectURL,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err)))
			return
		}
	}
}

// pricedRequestOf lets a catalog dish win over a client side price
func (s *webService) pricedRequestOf(checkout checkoutapi.Checkout) PricedRequest {
	if checkout.DishID != "" {
		return ByID{
			DishID:    checkout.DishID,
			Quantity:  checkout.Quantity,
			UserEmail: checkout.CustomerEmail,
		}
	}

	name := checkout.DishName
	if name == "" {
		name = checkout.Description
	}
	line := pricing.NewOrderLine(pricing.OrderLineKindPhysical, name, checkout.UnitPrice, checkout.Quantity, s.service.taxPolicy)
	return ByAmount{
		Amount:     line.TotalAmount,
		Currency:   currencySEK,
		OrderLines: []pricing.OrderLine{line},
		UserEmail:  checkout.CustomerEmail,
	}
}

func (s *webService) fullscreenPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		payment, err := s.service.fullscreen(c, checkoutUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		if payment.HTMLSnippet == "" {
			http.Redirect(w, r, payment.RedirectURL, http.StatusSeeOther)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = fullscreenPageTemplate.Execute(w, embeddedPageInfo{
			CheckoutUID: checkoutUID,
			HTMLSnippet: template.HTML(payment.HTMLSnippet),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err)))
			return
		}
	}
}

// webhookNotification serves both mollie (form field id) and klarna push (query param id)
func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		reference := r.FormValue("id")
		if reference == "" {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputErrorf("missing payment id"))
			return
		}

		err := s.service.webhookNotification(c, checkoutUID, reference)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}
