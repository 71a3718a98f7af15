package mobilepayment

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/checkoutapi"
)

//go:embed templates
var templateFolder embed.FS
var (
	mobilePageTemplate *template.Template
)

func init() {
	mobilePageTemplate = template.Must(template.ParseFS(templateFolder, "templates/mobile.html"))
}

type Config struct {
	BaseURL    string
	PayeeAlias string
}

type webService struct {
	logger  mylog.Logger
	baseURL string
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, attempts *checkoutapi.Attempts, payer Payer, uuider myuuid.UUIDer, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("mobilepayment")
	return &webService{
		logger:  logger,
		baseURL: cfg.BaseURL,
		service: newService(logger, attempts, payer, uuider, publisher, cfg.PayeeAlias),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/checkout/{checkoutUID}/mobile/request", s.requestPayment()).Methods("POST")
	router.HandleFunc("/api/checkout/{checkoutUID}/mobile/again", s.sendAgain()).Methods("POST")
	router.HandleFunc("/checkout/{checkoutUID}/mobile", s.requestPaymentPage()).Methods("POST")
	router.HandleFunc("/checkout/{checkoutUID}/mobile/again", s.sendAgainPage()).Methods("POST")

	router.HandleFunc("/mobile/callback/{checkoutUID}", s.callback()).Methods("POST")

	return nil
}

func (s *webService) requestPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		req := MobilePaymentRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.initiateMobilePayment(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) sendAgain() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		err := s.service.sendAgain(c, checkoutUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "ready"})
	}
}

type mobilePageInfo struct {
	CheckoutUID    string
	Sent           bool
	Amount         string
	AmountValue    string
	Phone          string
	Message        string
	OrderReference string
	Error          string
	Checkout       url.Values
}

// requestPaymentPage renders either the "request sent" state or the widget with the error
func (s *webService) requestPaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		checkout, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		checkoutValues, err := checkout.ToForm()
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(err))
			return
		}
		checkoutValues.Del("orderReference")

		info := mobilePageInfo{
			CheckoutUID:    checkoutUID,
			Phone:          r.FormValue("phone"),
			Message:        r.FormValue("message"),
			OrderReference: checkout.OrderReference,
			Checkout:       checkoutValues,
		}
		status := http.StatusOK

		amount, err := amountOf(r.FormValue("amount"), checkout)
		if err != nil {
			status = myerrors.GetHTTPStatus(err)
			info.Error = myerrors.GetMessage(err)
		} else {
			info.AmountValue = amount.StringFixed(2)
			resp, err := s.service.initiateMobilePayment(c, checkoutUID, myhttp.HostnameWithScheme(r, s.baseURL), MobilePaymentRequest{
				Amount:     amount,
				PayerAlias: info.Phone,
				Message:    info.Message,
				OrderID:    checkout.OrderReference,
			})
			if err != nil {
				status = myerrors.GetHTTPStatus(err)
				info.Error = myerrors.GetMessage(err)
			} else {
				info.Sent = true
				info.Amount = resp.Amount
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		err = mobilePageTemplate.Execute(w, info)
		if err != nil {
			s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error executing template: %s", err)
		}
	}
}

// amountOf prefers an explicit amount and otherwise charges unit price times quantity
func amountOf(amountValue string, checkout checkoutapi.Checkout) (decimal.Decimal, error) {
	if amountValue == "" {
		return checkout.UnitPrice.Mul(decimal.NewFromInt(int64(checkout.Quantity))), nil
	}
	amount, err := decimal.NewFromString(amountValue)
	if err != nil {
		return decimal.Zero, myerrors.NewInvalidInputError(fmt.Errorf("invalid amount '%s'", amountValue))
	}
	return amount, nil
}

func (s *webService) sendAgainPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		checkout, err := checkoutapi.NewFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		err = s.service.sendAgain(c, checkoutUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		values, err := checkout.ToForm()
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInternalError(err))
			return
		}
		values.Set("method", string(checkoutapi.PaymentMethodMobile))

		http.Redirect(w, r, fmt.Sprintf("/checkout/%s?%s", checkoutUID, values.Encode()), http.StatusSeeOther)
	}
}

func (s *webService) callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		payment := SwishPayment{}
		err := myhttp.DecodeJSON(r, &payment)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if payment.ID == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("missing payment id"))
			return
		}

		err = s.service.callback(c, checkoutUID, payment.ID)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}
