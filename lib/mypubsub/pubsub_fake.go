package mypubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/MarcGrol/homechef/lib/myevents"
	"github.com/MarcGrol/homechef/lib/myhttpclient"
	"github.com/MarcGrol/homechef/lib/mylog"
)

// fakePubSub pushes directly to the subscribed urls; used when running outside of gcloud
type fakePubSub struct {
	sync.Mutex
	logger        mylog.Logger
	httpClient    myhttpclient.HTTPSender
	subscriptions map[string][]string
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakePubSub
	}
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	httpClient, err := myhttpclient.New()
	if err != nil {
		return nil, nil, err
	}
	return &fakePubSub{
			logger:        mylog.New("pubsub"),
			httpClient:    httpClient,
			subscriptions: map[string][]string{},
		}, func() {
		}, nil
}

func (q *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	q.Lock()
	defer q.Unlock()

	q.logger.Log(c, "", mylog.SeverityDebug, "Fake subscribe %s to topic %s", urlToPostTo, topic)
	q.subscriptions[topic] = append(q.subscriptions[topic], urlToPostTo)
	return nil
}

func (q *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (q *fakePubSub) Publish(c context.Context, topic string, data string) error {
	q.Lock()
	urls := append([]string{}, q.subscriptions[topic]...)
	q.Unlock()

	q.logger.Log(c, "", mylog.SeverityDebug, "Fake publish on topic %s to %d subscribers", topic, len(urls))

	body, err := json.Marshal(myevents.PushRequest{
		Message:      myevents.PushMessage{Data: []byte(data)},
		Subscription: topic,
	})
	if err != nil {
		return fmt.Errorf("error marshalling push-request: %s", err)
	}

	for _, url := range urls {
		go q.push(url, body)
	}
	return nil
}

// delivery happens outside the publishers transaction
func (q *fakePubSub) push(url string, body []byte) {
	c := context.Background()
	status, _, err := q.httpClient.Send(c, http.MethodPost, url, body)
	if err != nil {
		q.logger.Log(c, "", mylog.SeverityWarn, "Error pushing to %s: %s", url, err)
		return
	}
	if status != http.StatusOK {
		q.logger.Log(c, "", mylog.SeverityWarn, "Push to %s rejected with status %d", url, status)
	}
}
