package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/homechef/lib/mystore"
)

func TestCatalog(t *testing.T) {
	t.Run("put then get dish", func(t *testing.T) {
		// setup
		router := setup(t)

		// given
		request, err := http.NewRequest(http.MethodPut, "/api/dish/dish_42", strings.NewReader(`{"title":"Kanelbullar","priceId":"price_123","unitPriceInCents":8900,"chefUid":"chef_1"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, http.StatusOK, response.Code)

		// when
		request, err = http.NewRequest(http.MethodGet, "/api/dish/dish_42", nil)
		assert.NoError(t, err)
		response = httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		dish := Dish{}
		err = json.Unmarshal(response.Body.Bytes(), &dish)
		assert.NoError(t, err)
		assert.Equal(t, Dish{
			UID:              "dish_42",
			Title:            "Kanelbullar",
			PriceID:          "price_123",
			UnitPriceInCents: 8900,
			Currency:         "SEK",
			ChefUID:          "chef_1",
		}, dish)
	})

	t.Run("unknown dish", func(t *testing.T) {
		router := setup(t)

		request, err := http.NewRequest(http.MethodGet, "/api/dish/dish_43", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("other currency rejected", func(t *testing.T) {
		router := setup(t)

		request, err := http.NewRequest(http.MethodPut, "/api/dish/dish_44", strings.NewReader(`{"title":"Stroopwafel","unitPriceInCents":250,"currency":"EUR"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func setup(t *testing.T) *mux.Router {
	c := context.TODO()
	store, _, err := mystore.NewInMemoryStore[Dish](c)
	assert.NoError(t, err)

	router := mux.NewRouter()
	err = NewWebService(New(store)).RegisterEndpoints(c, router)
	assert.NoError(t, err)
	return router
}
