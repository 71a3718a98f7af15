package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/homechef/lib/myevents"
	"github.com/MarcGrol/homechef/lib/mypubsub"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/services/checkoutevents"
)

var (
	order1 = Order{CheckoutUID: "123", OrderReference: "hc-123", ProviderName: "stripe", PaymentMethod: "card", AmountInCents: 31760, Currency: "EUR",
		Status: checkoutevents.CheckoutStatusPending, CreatedAt: mytime.ExampleTime}
	order2 = Order{CheckoutUID: "456", ProviderName: "swish", PaymentMethod: "mobile", AmountInCents: 24500, Currency: "SEK",
		Status: checkoutevents.CheckoutStatusSuccess, CreatedAt: mytime.ExampleTime.Add(time.Minute), Done: true}
)

func TestOrderService(t *testing.T) {

	t.Run("List orders newest first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, storer, _ := setup(t, ctrl)

		// given
		storer.Put(c, order1.CheckoutUID, order1)
		storer.Put(c, order2.CheckoutUID, order2)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/orders", "")

		// then
		assert.Equal(t, 200, response.Code)
		got := []Order{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Len(t, got, 2)
		assert.Equal(t, "456", got[0].CheckoutUID)
		assert.Equal(t, "123", got[1].CheckoutUID)
	})

	t.Run("List orders by status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, storer, _ := setup(t, ctrl)

		// given
		storer.Put(c, order1.CheckoutUID, order1)
		storer.Put(c, order2.CheckoutUID, order2)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/orders?status=pending", "")

		// then
		assert.Equal(t, 200, response.Code)
		got := []Order{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Len(t, got, 1)
		assert.Equal(t, "123", got[0].CheckoutUID)
	})

	t.Run("Get order not exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/orders/123", "")

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Checkout started creates pending order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, storer, nower := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/orders/event", createPubsubMessage(t, checkoutevents.CheckoutStarted{
			CheckoutUID:       "789",
			ProviderName:      "klarna",
			PaymentMethod:     "delayed",
			AmountInCents:     29800,
			Currency:          "SEK",
			OrderReference:    "hc-789",
			ProviderReference: "klarna-order-1",
		}))

		// then
		assert.Equal(t, 200, response.Code)
		order, exists, _ := storer.Get(c, "789")
		assert.True(t, exists)
		assert.Equal(t, checkoutevents.CheckoutStatusPending, order.Status)
		assert.Equal(t, int64(29800), order.AmountInCents)
		assert.Equal(t, "klarna-order-1", order.ProviderReference)
		assert.Equal(t, mytime.ExampleTime, order.CreatedAt)
		assert.False(t, order.Done)
	})

	t.Run("Checkout completed finalizes order once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, storer, nower := setup(t, ctrl)

		// given
		storer.Put(c, order1.CheckoutUID, order1)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/orders/event", createPubsubMessage(t, checkoutevents.CheckoutCompleted{
			CheckoutUID:    "123",
			ProviderName:   "stripe",
			PaymentMethod:  "card",
			CheckoutStatus: checkoutevents.CheckoutStatusSuccess,
		}))
		assert.Equal(t, 200, response.Code)

		// a late failure must not overwrite the final state
		response = doRequest(t, router, http.MethodPost, "/api/orders/event", createPubsubMessage(t, checkoutevents.CheckoutCompleted{
			CheckoutUID:           "123",
			ProviderName:          "stripe",
			PaymentMethod:         "card",
			CheckoutStatus:        checkoutevents.CheckoutStatusFailed,
			CheckoutStatusDetails: "too late",
		}))

		// then
		assert.Equal(t, 200, response.Code)
		order, _, _ := storer.Get(c, "123")
		assert.Equal(t, checkoutevents.CheckoutStatusSuccess, order.Status)
		assert.True(t, order.Done)
		assert.Equal(t, "hc-123", order.OrderReference)
	})

	t.Run("Pending completion keeps order open", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, storer, nower := setup(t, ctrl)

		// given
		storer.Put(c, order1.CheckoutUID, order1)
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/orders/event", createPubsubMessage(t, checkoutevents.CheckoutCompleted{
			CheckoutUID:           "123",
			CheckoutStatus:        checkoutevents.CheckoutStatusPending,
			CheckoutStatusDetails: "authorised, awaiting capture",
		}))

		// then
		assert.Equal(t, 200, response.Code)
		order, _, _ := storer.Get(c, "123")
		assert.False(t, order.Done)
		assert.Equal(t, "authorised, awaiting capture", order.StatusDetails)
	})

	t.Run("Malformed event", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/orders/event", "{")

		// then
		assert.Equal(t, 400, response.Code)
	})
}

func doRequest(t *testing.T, router *mux.Router, method string, url string, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(method, url, strings.NewReader(body))
	assert.NoError(t, err)
	request.Host = "localhost:8888"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func createPubsubMessage(t *testing.T, event myevents.Event) string {
	msg, err := myevents.CreatePushRequest(checkoutevents.TopicName, "orders", event, mytime.ExampleTime)
	assert.NoError(t, err)
	return msg
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Order], *mytime.MockNower) {
	c := context.TODO()
	storer, _, _ := mystore.NewInMemoryStore[Order](c)
	nower := mytime.NewMockNower(ctrl)
	subscriber := mypubsub.NewMockPubSub(ctrl)

	sut := NewWebService(Config{BaseURL: "http://localhost:8080"}, storer, nower, subscriber)
	router := mux.NewRouter()

	// These are called by the following call to RegisterEndpoints()
	subscriber.EXPECT().CreateTopic(c, checkoutevents.TopicName).Return(nil)
	subscriber.EXPECT().Subscribe(c, checkoutevents.TopicName, "http://localhost:8080/api/orders/event").Return(nil)

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, storer, nower
}
