package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypubsub"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
)

type service struct {
	orderStore  mystore.Store[Order]
	pubsub      mypubsub.PubSub
	nower       mytime.Nower
	logger      mylog.Logger
	callbackURL string
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Order], nower mytime.Nower, pubsub mypubsub.PubSub, logger mylog.Logger, callbackURL string) *service {
	return &service{
		orderStore:  store,
		pubsub:      pubsub,
		nower:       nower,
		logger:      logger,
		callbackURL: callbackURL,
	}
}

func (s *service) listOrders(c context.Context, status string) ([]Order, error) {
	filters := []mystore.Filter{}
	if status != "" {
		filters = append(filters, mystore.Filter{Field: "Status", Compare: "=", Value: status})
	}

	orders, err := s.orderStore.Query(c, filters, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error querying orders: %s", err))
	}

	// newest first
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *service) getOrder(c context.Context, checkoutUID string) (Order, error) {
	order, found, err := s.orderStore.Get(c, checkoutUID)
	if err != nil {
		return Order{}, myerrors.NewInternalError(fmt.Errorf("error fetching order %s: %s", checkoutUID, err))
	}
	if !found {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", checkoutUID))
	}
	return order, nil
}
