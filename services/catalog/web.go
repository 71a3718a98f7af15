package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/mycontext"
	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myhttp"
	"github.com/MarcGrol/homechef/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	catalog *storeCatalog
}

func NewWebService(catalog *storeCatalog) *webService {
	return &webService{
		logger:  mylog.New("catalog"),
		catalog: catalog,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/dish/{dishUID}", s.putDish()).Methods("PUT")
	router.HandleFunc("/api/dish/{dishUID}", s.getDish()).Methods("GET")

	return nil
}

func (s *webService) putDish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		dish := Dish{}
		err := myhttp.DecodeJSON(r, &dish)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		dish.UID = mux.Vars(r)["dishUID"]
		if dish.Currency == "" {
			dish.Currency = "SEK"
		}

		err = s.catalog.putDish(c, dish)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, dish)
	}
}

func (s *webService) getDish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		dishUID := mux.Vars(r)["dishUID"]

		dish, found, err := s.catalog.GetDish(c, dishUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 2, myerrors.NewNotFoundError(fmt.Errorf("dish %s not found", dishUID)))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, dish)
	}
}
