package confirmation

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
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/services/cardcheckout"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

func TestConfirmation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := context.TODO()

	t.Run("Session from url wins", func(t *testing.T) {
		// setup
		router, store, payer := setup(t, ctrl)

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{CheckoutUID: "123", SessionID: "cs_stored"})
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(paidSession, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation?session_id=cs_test_456", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		body := response.Body.String()
		assert.Contains(t, body, "1000.00 SEK")
		assert.Contains(t, body, "200.00 SEK")
		assert.Contains(t, body, "800.00 SEK")
		assert.Contains(t, body, "https://pay.stripe.com/receipts/xyz")
		assert.Contains(t, body, "/checkout/123/confirmation/commission-report?session_id=cs_test_456")
	})

	t.Run("Line items shown in major units", func(t *testing.T) {
		// setup
		router, _, payer := setup(t, ctrl)

		// given
		session := paidSession
		session.AmountTotal = 9434
		session.LineItems = &stripe.LineItemList{
			Data: []*stripe.LineItem{
				{Description: "Köttbullar", Quantity: 1, AmountTotal: 8900},
				{Description: "Service fee", Quantity: 1, AmountTotal: 534},
			},
		}
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(session, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation?session_id=cs_test_456", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		body := response.Body.String()
		assert.Contains(t, body, `<td class="amount">89.00 SEK</td>`)
		assert.Contains(t, body, `<td class="amount">5.34 SEK</td>`)
		assert.NotContains(t, body, "<td>8900</td>")
		assert.NotContains(t, body, "<td>534</td>")
	})

	t.Run("Commission block shows total", func(t *testing.T) {
		// setup
		router, _, payer := setup(t, ctrl)

		// given
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(paidSession, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation?session_id=cs_test_456", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "<dt>Totalt</dt><dd>1000.00 SEK</dd>")
	})

	t.Run("Stored session is used when url has none", func(t *testing.T) {
		// setup
		router, store, payer := setup(t, ctrl)

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{CheckoutUID: "123", SessionID: "cs_test_456"})
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(paidSession, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "1000.00 SEK")
	})

	t.Run("Without any session the provider is not called", func(t *testing.T) {
		// setup
		router, store, _ := setup(t, ctrl)

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{
			CheckoutUID:    "123",
			PaymentMethod:  checkoutapi.PaymentMethodMobile,
			CheckoutStatus: checkoutevents.CheckoutStatusPending,
		})

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), `id="no-receipt"`)
		assert.Contains(t, response.Body.String(), "pending")
	})

	t.Run("Failed verification still renders the page", func(t *testing.T) {
		// setup
		router, _, payer := setup(t, ctrl)

		// given
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_gone").Return(stripe.CheckoutSession{}, myerrors.NewPaymentError(fmt.Errorf("No such checkout.session: cs_gone")))

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation?session_id=cs_gone", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "No such checkout.session: cs_gone")
		assert.Contains(t, response.Body.String(), `id="receipt"`)
	})

	t.Run("Commission report page", func(t *testing.T) {
		// setup
		router, store, payer := setup(t, ctrl)

		// given
		store.Put(c, "123", checkoutapi.CheckoutContext{CheckoutUID: "123", SessionID: "cs_test_456"})
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(paidSession, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation/commission-report", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "text/html; charset=utf-8", response.Header().Get("Content-Type"))
		body := response.Body.String()
		assert.Contains(t, body, "Köttbullar")
		assert.Contains(t, body, "(20%)")
		assert.Contains(t, body, "200.00 SEK")
		assert.Contains(t, body, "800.00 SEK")
		assert.Contains(t, body, "2026-10-19 12:30")
	})

	t.Run("Commission report without session", func(t *testing.T) {
		// setup
		router, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodGet, "/checkout/123/confirmation/commission-report", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Verify via api", func(t *testing.T) {
		// setup
		router, _, payer := setup(t, ctrl)

		// given
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_456").Return(paidSession, nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(`{"sessionId":"cs_test_456"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := map[string]any{}
		err = json.Unmarshal(response.Body.Bytes(), &resp)
		assert.NoError(t, err)
		assert.Equal(t, float64(100000), resp["amount_total"])
		assert.Equal(t, "paid", resp["payment_status"])
		assert.Equal(t, "anna@example.se", resp["customer_email"])
		report := resp["commission_report"].(map[string]any)
		assert.Equal(t, "200", report["platform_fee"])
		assert.Equal(t, "800", report["chef_earnings"])
	})

	t.Run("Verify via api without session", func(t *testing.T) {
		// setup
		router, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(`{}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Commission report of unpaid session via api", func(t *testing.T) {
		// setup
		router, _, payer := setup(t, ctrl)

		// given
		payer.EXPECT().GetCheckoutSession(gomock.Any(), "cs_test_789").Return(stripe.CheckoutSession{
			ID:            "cs_test_789",
			PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		}, nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/payment/commission-report", strings.NewReader(`{"sessionId":"cs_test_789"}`))
		assert.NoError(t, err)
		request.Header.Set("Content-Type", "application/json")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, mystore.Store[checkoutapi.CheckoutContext], *cardcheckout.MockPayer) {
	c := context.TODO()

	store, _, err := mystore.NewInMemoryStore[checkoutapi.CheckoutContext](c)
	assert.NoError(t, err)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	payer := cardcheckout.NewMockPayer(ctrl)

	sut := NewWebService(Config{
		CommissionPolicy: pricing.CommissionPolicy{PlatformRate: pricing.DefaultPlatformFeeRate},
	}, checkoutapi.NewAttempts(store, nower), payer, nower)

	router := mux.NewRouter()
	err = sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return router, store, payer
}
