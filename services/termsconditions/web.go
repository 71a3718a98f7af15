package termsconditions

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/mail"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
)

// CurrentVersion is the version a customer agrees to when accepting
const CurrentVersion = "2026.1"

type webService struct {
	logger    mylog.Logger
	publisher mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(pub mypublisher.Publisher) *webService {
	logger := mylog.New("termsconditions")

	return &webService{
		logger:    logger,
		publisher: pub,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/terms", s.getTermsAndConditions()).Methods("GET")
	router.HandleFunc("/terms", s.acceptTermsAndConditions()).Methods("POST")

	return s.Subscribe(c)
}

func (s *webService) Subscribe(c context.Context) error {
	err := s.publisher.CreateTopic(c, TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", TopicName, err)
	}

	return nil
}

//go:embed templates
var templateFolder embed.FS
var (
	termsConditionsPageTemplate *template.Template
)

func init() {
	termsConditionsPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/termsconditions.html"))
}

type termsPage struct {
	Version  string
	Accepted bool
}

func (s *webService) getTermsAndConditions() http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := termsConditionsPageTemplate.Execute(w, termsPage{
			Version:  CurrentVersion,
			Accepted: r.URL.Query().Get("accepted") == "true",
		})
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s *webService) acceptTermsAndConditions() http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		address, err := mail.ParseAddress(r.FormValue("email"))
		if err != nil {
			responseWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("invalid email address: %s", err))
			return
		}

		err = s.publisher.Publish(c, TopicName, TermsConditionsAccepted{
			EmailAddress: address.Address,
			Version:      CurrentVersion,
		})
		if err != nil {
			responseWriter.WriteError(c, w, 3, myerrors.NewInternalError(err))
			return
		}

		http.Redirect(w, r, "/terms?accepted=true", http.StatusSeeOther)
	}
}
