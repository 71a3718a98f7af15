package cardcheckout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

var (
	dishPrice = stripe.Price{
		ID:         "price_123",
		UnitAmount: 8900,
		Currency:   "sek",
	}
	sessionResp = stripe.CheckoutSession{
		ID:          "cs_test_456",
		AmountTotal: int64(9434),
		Currency:    "sek",
		URL:         "https://checkout.stripe.com/c/pay/cs_test_456",
	}
)

func TestCardCheckout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := context.TODO()

	t.Run("Create session via api", func(t *testing.T) {
		// setup
		router, store, payer, publisher := setup(t, ctrl, "")

		// given
		payer.EXPECT().GetPrice(gomock.Any(), "price_123").Return(dishPrice, nil)
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
			assert.Equal(t, "http://localhost:8888/checkout/123/confirmation?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
			assert.Equal(t, "http://localhost:8888/checkout/123?method=card", *params.CancelURL)
			assert.Equal(t, "123", params.Metadata["checkoutUID"])
			assert.Equal(t, "Kanelbullar", params.Metadata["dishName"])
			assert.Len(t, params.LineItems, 2)
			assert.Equal(t, "price_123", *params.LineItems[0].Price)
			assert.Equal(t, int64(1), *params.LineItems[0].Quantity)
			assert.Equal(t, int64(534), *params.LineItems[1].PriceData.UnitAmount)
			return sessionResp, nil
		})
		publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:       "123",
			ProviderName:      "stripe",
			PaymentMethod:     "card",
			AmountInCents:     9434,
			Currency:          "sek",
			ProviderReference: "cs_test_456",
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/checkout/123/card/session", strings.NewReader(`{"priceId":"price_123","quantity":1,"dishName":"Kanelbullar"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := CardSessionResponse{}
		err = json.Unmarshal(response.Body.Bytes(), &resp)
		assert.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_456", resp.URL)
		assert.Equal(t, "cs_test_456", resp.SessionID)

		checkoutContext, found, err := store.Get(c, "123")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "cs_test_456", checkoutContext.SessionID)
		assert.Equal(t, checkoutapi.AttemptStateSettled, checkoutContext.AttemptState)
		assert.Equal(t, checkoutapi.PaymentMethodCard, checkoutContext.PaymentMethod)
	})

	t.Run("Create session via form redirects to stripe", func(t *testing.T) {
		// setup
		router, _, payer, publisher := setup(t, ctrl, "")

		// given
		payer.EXPECT().GetPrice(gomock.Any(), "price_123").Return(dishPrice, nil)
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(sessionResp, nil)
		publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/checkout/123/card", strings.NewReader(`priceId=price_123&quantity=2&dishName=Kanelbullar`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_456", response.Header().Get("Location"))
	})

	t.Run("Missing price is rejected before any remote call", func(t *testing.T) {
		// setup
		router, store, _, _ := setup(t, ctrl, "")

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/checkout/123/card/session", strings.NewReader(`{"quantity":1,"dishName":"Kanelbullar"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		_, found, _ := store.Get(c, "123")
		assert.False(t, found)
	})

	t.Run("Double submit is rejected", func(t *testing.T) {
		// setup
		router, store, _, _ := setup(t, ctrl, "")

		// given
		startedAt := mytime.ExampleTime
		store.Put(c, "123", checkoutapi.CheckoutContext{
			CheckoutUID:      "123",
			AttemptState:     checkoutapi.AttemptStateSubmitting,
			AttemptStartedAt: &startedAt,
		})

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/checkout/123/card/session", strings.NewReader(`{"priceId":"price_123","quantity":1}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusConflict, response.Code)
	})

	t.Run("Provider error is surfaced with its message", func(t *testing.T) {
		// setup
		router, store, payer, _ := setup(t, ctrl, "")

		// given
		payer.EXPECT().GetPrice(gomock.Any(), "price_123").Return(dishPrice, nil)
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(stripe.CheckoutSession{}, myerrors.NewPaymentError(fmt.Errorf("No such price")))

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/checkout/123/card/session", strings.NewReader(`{"priceId":"price_123","quantity":1}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadGateway, response.Code)
		assert.Contains(t, response.Body.String(), "No such price")
		checkoutContext, _, _ := store.Get(c, "123")
		assert.Equal(t, checkoutapi.AttemptStateError, checkoutContext.AttemptState)
		assert.Equal(t, "No such price", checkoutContext.LastError)
	})

	t.Run("Failure to remember session is not surfaced", func(t *testing.T) {
		// setup
		router, _, payer, publisher := setup(t, ctrl, "")

		// given
		payer.EXPECT().GetPrice(gomock.Any(), "price_123").Return(dishPrice, nil)
		payer.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(sessionResp, nil)
		publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.Any()).Return(fmt.Errorf("datastore unavailable"))

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/checkout/123/card/session", strings.NewReader(`{"priceId":"price_123","quantity":1}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "cs_test_456")
	})
}

func TestWebhook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := context.TODO()

	t.Run("Completed session marks checkout successful", func(t *testing.T) {
		// setup
		router, store, _, publisher := setup(t, ctrl, "")

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{
			CheckoutUID:    "123",
			AttemptState:   checkoutapi.AttemptStateSettled,
			CheckoutStatus: checkoutevents.CheckoutStatusPending,
		})
		publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:           "123",
			ProviderName:          "stripe",
			PaymentMethod:         "card",
			CheckoutStatus:        checkoutevents.CheckoutStatusSuccess,
			CheckoutStatusDetails: "paid",
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/card/webhook/event", strings.NewReader(sessionEvent("checkout.session.completed", "paid")))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		checkoutContext, _, _ := store.Get(c, "123")
		assert.Equal(t, checkoutevents.CheckoutStatusSuccess, checkoutContext.CheckoutStatus)
		assert.Equal(t, int64(9434), checkoutContext.AmountInCents)
	})

	t.Run("Redelivered event publishes once", func(t *testing.T) {
		// setup
		router, store, _, publisher := setup(t, ctrl, "")

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{
			CheckoutUID:    "123",
			CheckoutStatus: checkoutevents.CheckoutStatusExpired,
		})
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		// when
		request, err := http.NewRequest(http.MethodPost, "/card/webhook/event", strings.NewReader(sessionEvent("checkout.session.expired", "unpaid")))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("Other event types are acknowledged and ignored", func(t *testing.T) {
		// setup
		router, _, _, publisher := setup(t, ctrl, "")

		// given
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		// when
		request, err := http.NewRequest(http.MethodPost, "/card/webhook/event", strings.NewReader(sessionEvent("customer.created", "")))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("Unsigned event is rejected when secret is configured", func(t *testing.T) {
		// setup
		router, _, _, _ := setup(t, ctrl, "whsec_test")

		// when
		request, err := http.NewRequest(http.MethodPost, "/card/webhook/event", strings.NewReader(sessionEvent("checkout.session.completed", "paid")))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusForbidden, response.Code)
	})

	t.Run("Wrongly signed event is rejected", func(t *testing.T) {
		// setup
		router, _, _, _ := setup(t, ctrl, "whsec_test")

		// when
		request, err := http.NewRequest(http.MethodPost, "/card/webhook/event", strings.NewReader(sessionEvent("checkout.session.completed", "paid")))
		assert.NoError(t, err)
		request.Header.Set("Stripe-Signature", "t=1492774577,v1=5257a869e7ecebeda32affa62cdca3fa51cad7e77a0e56ff536d0ce8e108d8bd")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusForbidden, response.Code)
	})
}

func TestCheckoutStatusOf(t *testing.T) {
	testCases := []struct {
		eventType     string
		paymentStatus stripe.CheckoutSessionPaymentStatus
		status        checkoutevents.CheckoutStatus
		handled       bool
	}{
		{"checkout.session.completed", stripe.CheckoutSessionPaymentStatusPaid, checkoutevents.CheckoutStatusSuccess, true},
		{"checkout.session.completed", stripe.CheckoutSessionPaymentStatusUnpaid, checkoutevents.CheckoutStatusPending, true},
		{"checkout.session.async_payment_succeeded", stripe.CheckoutSessionPaymentStatusPaid, checkoutevents.CheckoutStatusSuccess, true},
		{"checkout.session.async_payment_failed", stripe.CheckoutSessionPaymentStatusUnpaid, checkoutevents.CheckoutStatusFailed, true},
		{"checkout.session.expired", stripe.CheckoutSessionPaymentStatusUnpaid, checkoutevents.CheckoutStatusExpired, true},
		{"charge.refunded", stripe.CheckoutSessionPaymentStatusPaid, checkoutevents.CheckoutStatusUndefined, false},
	}

	for _, tc := range testCases {
		t.Run(tc.eventType+"/"+string(tc.paymentStatus), func(t *testing.T) {
			status, handled := checkoutStatusOf(tc.eventType, stripe.CheckoutSession{PaymentStatus: tc.paymentStatus})
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.handled, handled)
		})
	}
}

func sessionEvent(eventType string, paymentStatus string) string {
	return fmt.Sprintf(`{
	"id": "evt_1",
	"object": "event",
	"type": "%s",
	"data": {
		"object": {
			"id": "cs_test_456",
			"object": "checkout.session",
			"amount_total": 9434,
			"currency": "sek",
			"payment_status": "%s",
			"client_reference_id": "123",
			"metadata": {"checkoutUID": "123"}
		}
	}
}`, eventType, paymentStatus)
}

func setup(t *testing.T, ctrl *gomock.Controller, webhookSecret string) (*mux.Router, mystore.Store[checkoutapi.CheckoutContext], *MockPayer, *mypublisher.MockPublisher) {
	c := context.TODO()

	store, _, err := mystore.NewInMemoryStore[checkoutapi.CheckoutContext](c)
	assert.NoError(t, err)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	payer := NewMockPayer(ctrl)
	payer.EXPECT().UseAPIKey("sk_test_key")
	publisher := mypublisher.NewMockPublisher(ctrl)

	sut := NewWebService(Config{
		APIKey:        "sk_test_key",
		WebhookSecret: webhookSecret,
		FeePolicy:     pricing.ServiceFeePolicy{Rate: pricing.DefaultServiceFeeRate},
	}, checkoutapi.NewAttempts(store, nower), payer, publisher)

	router := mux.NewRouter()
	err = sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return router, store, payer, publisher
}
