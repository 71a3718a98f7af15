package orders

import (
	"context"
	"fmt"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/services/checkoutevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, s.callbackURL)
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnCheckoutStarted(c context.Context, topic string, event checkoutevents.CheckoutStarted) error {
	s.logger.Log(c, event.CheckoutUID, mylog.SeverityInfo, "Checkout %s started via %s (%s)", event.CheckoutUID, event.ProviderName, event.PaymentMethod)

	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		order, found, err := s.orderStore.Get(c, event.CheckoutUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			order = Order{
				CheckoutUID: event.CheckoutUID,
				CreatedAt:   now,
			}
		}
		if order.Done {
			return nil
		}

		// a retried attempt may pick another method or provider
		order.OrderReference = event.OrderReference
		order.ProviderName = event.ProviderName
		order.PaymentMethod = event.PaymentMethod
		order.ProviderReference = event.ProviderReference
		order.AmountInCents = event.AmountInCents
		order.Currency = event.Currency
		order.Status = checkoutevents.CheckoutStatusPending
		order.StatusDetails = ""
		order.LastModified = &now

		err = s.orderStore.Put(c, event.CheckoutUID, order)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}

func (s *service) OnCheckoutCompleted(c context.Context, topic string, event checkoutevents.CheckoutCompleted) error {
	s.logger.Log(c, event.CheckoutUID, mylog.SeverityInfo, "Checkout status update on order %s -> %s", event.CheckoutUID, event.CheckoutStatus)

	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		order, found, err := s.orderStore.Get(c, event.CheckoutUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			// completion overtook the start event
			order = Order{
				CheckoutUID:   event.CheckoutUID,
				ProviderName:  event.ProviderName,
				PaymentMethod: event.PaymentMethod,
				CreatedAt:     now,
			}
		}

		if order.Done {
			return nil
		}

		order.Status = event.CheckoutStatus
		order.StatusDetails = event.CheckoutStatusDetails
		order.LastModified = &now
		order.Done = event.CheckoutStatus.IsFinal()

		err = s.orderStore.Put(c, event.CheckoutUID, order)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}
