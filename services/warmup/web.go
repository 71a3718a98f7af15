package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/catalog"
	"github.com/MarcGrol/homechef/services/checkoutapi"
)

// probeUID never exists; the lookups only open the datastore connections
const probeUID = "warmup"

type webService struct {
	logger    mylog.Logger
	attempts  *checkoutapi.Attempts
	catalog   catalog.Catalog
	uuider    myuuid.UUIDer
	publisher mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(attempts *checkoutapi.Attempts, catalog catalog.Catalog, uuider myuuid.UUIDer, publisher mypublisher.Publisher) *webService {
	return &webService{
		logger:    mylog.New("warmup"),
		attempts:  attempts,
		catalog:   catalog,
		uuider:    uuider,
		publisher: publisher,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	err := s.publisher.CreateTopic(c, TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", TopicName, err)
	}

	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")

	return nil
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, _, err := s.attempts.Get(c, probeUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnavailableError(fmt.Errorf("checkout store not ready: %s", err)))
			return
		}

		_, _, err = s.catalog.GetDish(c, probeUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewUnavailableError(fmt.Errorf("catalog not ready: %s", err)))
			return
		}

		err = s.publisher.Publish(c, TopicName, WarmupKicked{UID: s.uuider.Create()})
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewUnavailableError(fmt.Errorf("publisher not ready: %s", err)))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
