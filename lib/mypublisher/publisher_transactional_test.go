package mypublisher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/homechef/lib/myevents"
	"github.com/MarcGrol/homechef/lib/mypubsub"
	"github.com/MarcGrol/homechef/lib/myqueue"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
)

func TestTransactionalPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := context.TODO()

	t.Run("publish stores envelope and enqueues trigger", func(t *testing.T) {
		// setup
		outbox, queue, pubsub, sut := setup(t, ctrl)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, task myqueue.Task) error {
			assert.Regexp(t, "^/pubsub/checkout/", task.WebhookURLPath)
			return nil
		})
		pubsub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		// when
		err := sut.Publish(c, "checkout", dishOrdered{CheckoutUID: "abc", Quantity: 1})

		// then
		assert.NoError(t, err)
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		assert.Len(t, envelopes, 1)
		assert.False(t, envelopes[0].Published)
	})

	t.Run("trigger flushes unpublished envelopes", func(t *testing.T) {
		// setup
		outbox, queue, pubsub, sut := setup(t, ctrl)
		router := mux.NewRouter()
		sut.RegisterEndpoints(c, router)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
		err := sut.Publish(c, "checkout", dishOrdered{CheckoutUID: "abc", Quantity: 1})
		assert.NoError(t, err)
		pubsub.EXPECT().Publish(gomock.Any(), "checkout", gomock.Any()).Return(nil)

		// when
		request, _ := http.NewRequest(http.MethodPut, "/pubsub/checkout/abc", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		assert.Len(t, envelopes, 1)
		assert.True(t, envelopes[0].Published)
	})

	t.Run("failing flush keeps envelope unpublished", func(t *testing.T) {
		// setup
		outbox, queue, pubsub, sut := setup(t, ctrl)
		router := mux.NewRouter()
		sut.RegisterEndpoints(c, router)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
		err := sut.Publish(c, "checkout", dishOrdered{CheckoutUID: "abc", Quantity: 1})
		assert.NoError(t, err)
		pubsub.EXPECT().Publish(gomock.Any(), "checkout", gomock.Any()).Return(fmt.Errorf("pubsub down"))
		queue.EXPECT().IsLastAttempt(gomock.Any(), "abc").Return(int32(5), int32(5))

		// when
		request, _ := http.NewRequest(http.MethodPut, "/pubsub/checkout/abc", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		assert.Len(t, envelopes, 1)
		assert.False(t, envelopes[0].Published)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (mystore.Store[myevents.EventEnvelope], *myqueue.MockTaskQueuer, *mypubsub.MockPubSub, *transactionalPublisher) {
	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](context.TODO())
	assert.NoError(t, err)
	queue := myqueue.NewMockTaskQueuer(ctrl)
	pubsub := mypubsub.NewMockPubSub(ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	return outbox, queue, pubsub, newTransactionalPublisher(outbox, queue, pubsub, nower)
}
