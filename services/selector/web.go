package selector

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

//go:embed templates
var templateFolder embed.FS
var (
	selectorPageTemplate *template.Template
)

func init() {
	selectorPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/selector.html"))
}

type Config struct {
	FeePolicy pricing.ServiceFeePolicy
}

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, attempts *checkoutapi.Attempts, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("selector")
	return &webService{
		logger:  logger,
		service: newService(logger, attempts, uuider, cfg.FeePolicy),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/checkout", s.startCheckout()).Methods("GET")
	router.HandleFunc("/checkout/{checkoutUID}", s.selectorPage()).Methods("GET")

	return nil
}

// startCheckout gives every checkout its own correlation id
func (s *webService) startCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkoutUID := s.service.newCheckoutUID()

		target := url.URL{
			Path:     fmt.Sprintf("/checkout/%s", checkoutUID),
			RawQuery: r.URL.RawQuery,
		}
		http.Redirect(w, r, target.String(), http.StatusSeeOther)
	}
}

func (s *webService) selectorPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutUID := mux.Vars(r)["checkoutUID"]
		query := r.URL.Query()
		method := checkoutapi.ParsePaymentMethod(query.Get("method"))
		query.Del("method")

		checkout, err := checkoutapi.NewFromValues(query)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		page, err := s.service.selectorPage(c, checkoutUID, method, checkout)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = selectorPageTemplate.Execute(w, page)
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInternalError(fmt.Errorf("error executing template: %s", err)))
			return
		}
	}
}
