package checkoutevents

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/myevents"
	"github.com/MarcGrol/homechef/lib/mytime"
)

func TestDispatchEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := context.TODO()

	t.Run("checkout started", func(t *testing.T) {
		// given
		service := NewMockCheckoutEventService(ctrl)
		event := CheckoutStarted{
			CheckoutUID:   "123",
			ProviderName:  "swish",
			PaymentMethod: "mobile",
			AmountInCents: 24500,
			Currency:      "SEK",
		}
		body, err := myevents.CreatePushRequest(TopicName, "orders", event, mytime.ExampleTime)
		assert.NoError(t, err)
		service.EXPECT().OnCheckoutStarted(gomock.Any(), TopicName, event).Return(nil)

		// when
		err = DispatchEvent(c, strings.NewReader(body), service)

		// then
		assert.NoError(t, err)
	})

	t.Run("checkout completed", func(t *testing.T) {
		// given
		service := NewMockCheckoutEventService(ctrl)
		event := CheckoutCompleted{
			CheckoutUID:    "123",
			ProviderName:   "stripe",
			PaymentMethod:  "card",
			CheckoutStatus: CheckoutStatusSuccess,
		}
		body, err := myevents.CreatePushRequest(TopicName, "orders", event, mytime.ExampleTime)
		assert.NoError(t, err)
		service.EXPECT().OnCheckoutCompleted(gomock.Any(), TopicName, event).Return(nil)

		// when
		err = DispatchEvent(c, strings.NewReader(body), service)

		// then
		assert.NoError(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		service := NewMockCheckoutEventService(ctrl)

		err := DispatchEvent(c, strings.NewReader("{"), service)

		assert.Equal(t, http.StatusBadRequest, myerrors.GetHTTPStatus(err))
	})
}

func TestCheckoutStatusIsFinal(t *testing.T) {
	assert.True(t, CheckoutStatusSuccess.IsFinal())
	assert.True(t, CheckoutStatusExpired.IsFinal())
	assert.False(t, CheckoutStatusPending.IsFinal())
	assert.False(t, CheckoutStatusUndefined.IsFinal())
}
