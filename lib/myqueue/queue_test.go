package myqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComposeQueueName(t *testing.T) {
	assert.Equal(t, "projects/homechef/locations/europe-west1/queues/default", composeQueueName("homechef", "europe-west1", ""))
	assert.Equal(t, "projects/homechef/locations/europe-west1/queues/outbox", composeQueueName("homechef", "europe-west1", "outbox"))
}

func TestFakeQueue(t *testing.T) {
	delivered := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered <- r.Method + " " + r.URL.Path
	}))
	defer server.Close()
	t.Setenv("BASE_URL", server.URL)

	queue, cleanup, err := newFakeQueue(context.TODO())
	assert.NoError(t, err)
	defer cleanup()

	err = queue.Enqueue(context.TODO(), Task{
		UID:            "abc",
		WebhookURLPath: "/pubsub/checkout/abc",
		Payload:        []byte{},
	})
	assert.NoError(t, err)

	select {
	case got := <-delivered:
		assert.Equal(t, "PUT /pubsub/checkout/abc", got)
	case <-time.After(5 * time.Second):
		t.Fatal("task not delivered")
	}

	numAttempts, maxAttempts := queue.IsLastAttempt(context.TODO(), "abc")
	assert.Equal(t, numAttempts, maxAttempts)
}
