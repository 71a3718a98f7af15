package confirmation

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/services/cardcheckout"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

//go:embed templates
var templateFolder embed.FS
var (
	confirmationPageTemplate *template.Template
	commissionReportTemplate *template.Template
)

func init() {
	confirmationPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/confirmation.html"))
	commissionReportTemplate = template.Must(template.ParseFS(templateFolder, "templates/commission_report.html"))
}

type Config struct {
	CommissionPolicy pricing.CommissionPolicy
}

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, attempts *checkoutapi.Attempts, payer cardcheckout.Payer, nower mytime.Nower) *webService {
	logger := mylog.New("confirmation")
	return &webService{
		logger:  logger,
		service: newService(logger, attempts, payer, nower, cfg.CommissionPolicy),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/checkout/{checkoutUID}/confirmation", s.confirmationPage()).Methods("GET")
	router.HandleFunc("/checkout/{checkoutUID}/confirmation/commission-report", s.commissionReportPage()).Methods("GET")

	router.HandleFunc("/api/payment/verify", s.verifyPayment()).Methods("POST")
	router.HandleFunc("/api/payment/commission-report", s.commissionReport()).Methods("POST")

	return nil
}

func (s *webService) confirmationPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		page := s.service.confirmationPage(c, checkoutUID, r.URL.Query().Get("session_id"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := confirmationPageTemplate.Execute(w, page)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err)))
			return
		}
	}
}

// commissionReportPage resolves the session like the confirmation page does
func (s *webService) commissionReportPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]

		checkoutContext, found, err := s.service.attempts.Get(c, checkoutUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		var contextPtr *checkoutapi.CheckoutContext
		if found {
			contextPtr = &checkoutContext
		}
		sessionID, source := ResolveSessionID(r.URL.Query().Get("session_id"), contextPtr)
		if source == SessionSourceNone {
			errorWriter.WriteError(c, w, 2, myerrors.NewNotFoundError(fmt.Errorf("no card payment for checkout %s", checkoutUID)))
			return
		}

		s.writeCommissionReport(c, w, sessionID)
	}
}

func (s *webService) verifyPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := VerifyRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		receipt, err := s.service.verifyPayment(c, req.SessionID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, receipt)
	}
}

func (s *webService) commissionReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := VerifyRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		s.writeCommissionReport(c, w, req.SessionID)
	}
}

func (s *webService) writeCommissionReport(c context.Context, w http.ResponseWriter, sessionID string) {
	errorWriter := myhttp.NewWriter(s.logger)

	document, err := s.service.generateCommissionReport(c, sessionID)
	if err != nil {
		errorWriter.WriteError(c, w, 10, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = commissionReportTemplate.Execute(w, document)
	if err != nil {
		errorWriter.WriteError(c, w, 11, myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err)))
		return
	}
}
