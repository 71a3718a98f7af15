package delayedpayment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/services/catalog"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

type service struct {
	logger    mylog.Logger
	attempts  *checkoutapi.Attempts
	catalog   catalog.Catalog
	payer     Payer
	publisher mypublisher.Publisher
	taxPolicy pricing.TaxPolicy
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, attempts *checkoutapi.Attempts, catalog catalog.Catalog, payer Payer, publisher mypublisher.Publisher, taxPolicy pricing.TaxPolicy) *service {
	return &service{
		logger:    logger,
		attempts:  attempts,
		catalog:   catalog,
		payer:     payer,
		publisher: publisher,
		taxPolicy: taxPolicy,
	}
}

func (s *service) initiateDelayedPayment(c context.Context, checkoutUID string, baseURL string, req PricedRequest) (Outcome, error) {
	err := req.Validate()
	if err != nil {
		return Outcome{}, err
	}

	_, err = s.attempts.Begin(c, checkoutUID, checkoutapi.PaymentMethodDelayed)
	if err != nil {
		return Outcome{}, err
	}

	outcome, providerCheckout, order, err := s.createPayment(c, checkoutUID, baseURL, req)
	if err != nil {
		s.fail(c, checkoutUID, err)
		return Outcome{}, err
	}

	providerName := s.payer.ProviderName()
	_, err = s.attempts.Settle(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		checkoutContext.PaymentProvider = providerName
		checkoutContext.ProviderReference = providerCheckout.Reference
		checkoutContext.AmountInCents = order.Amount
		checkoutContext.Currency = order.Currency
		checkoutContext.CheckoutStatus = checkoutevents.CheckoutStatusPending

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:       checkoutUID,
			ProviderName:      providerName,
			PaymentMethod:     string(checkoutapi.PaymentMethodDelayed),
			AmountInCents:     order.Amount,
			Currency:          order.Currency,
			ProviderReference: providerCheckout.Reference,
		})
	})
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error remembering %s payment %s: %s", providerName, providerCheckout.Reference, err)
	}

	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Delayed payment %s started: %s", providerCheckout.Reference, outcome.Kind)

	return outcome, nil
}

func (s *service) createPayment(c context.Context, checkoutUID string, baseURL string, req PricedRequest) (Outcome, ProviderCheckout, PaymentOrder, error) {
	order, err := s.buildOrder(c, checkoutUID, baseURL, req)
	if err != nil {
		return Outcome{}, ProviderCheckout{}, PaymentOrder{}, err
	}

	providerCheckout, err := s.payer.CreatePayment(c, order)
	if err != nil {
		return Outcome{}, ProviderCheckout{}, PaymentOrder{}, err
	}

	outcome, err := outcomeOf(providerCheckout, fullscreenURL(baseURL, checkoutUID))
	if err != nil {
		return Outcome{}, ProviderCheckout{}, PaymentOrder{}, err
	}

	return outcome, providerCheckout, order, nil
}

func (s *service) buildOrder(c context.Context, checkoutUID string, baseURL string, req PricedRequest) (PaymentOrder, error) {
	order := PaymentOrder{
		CheckoutUID:     checkoutUID,
		Currency:        currencySEK,
		Email:           req.Email(),
		ConfirmationURL: fmt.Sprintf("%s/checkout/%s/confirmation", baseURL, checkoutUID),
		CancelURL:       fmt.Sprintf("%s/checkout/%s?method=%s", baseURL, checkoutUID, checkoutapi.PaymentMethodDelayed),
		NotificationURL: fmt.Sprintf("%s/delayed/webhook/event/%s", baseURL, checkoutUID),
		TermsURL:        fmt.Sprintf("%s/terms", baseURL),
	}

	switch r := req.(type) {
	case ByID:
		dish, found, err := s.catalog.GetDish(c, r.DishID)
		if err != nil {
			return PaymentOrder{}, err
		}
		if !found {
			return PaymentOrder{}, myerrors.NewNotFoundError(fmt.Errorf("dish %s not found", r.DishID))
		}
		line := pricing.NewOrderLine(pricing.OrderLineKindPhysical, dish.Title, pricing.FromMinor(dish.UnitPriceInCents), r.Quantity, s.taxPolicy)
		order.OrderLines = []pricing.OrderLine{line}
		order.Description = fmt.Sprintf("%dx %s", r.Quantity, dish.Title)
	case ByAmount:
		order.OrderLines = r.OrderLines
		order.Description = r.OrderLines[0].Name
		if len(r.OrderLines) > 1 {
			order.Description = fmt.Sprintf("%s and %d more", r.OrderLines[0].Name, len(r.OrderLines)-1)
		}
	default:
		return PaymentOrder{}, myerrors.NewInvalidInputErrorf("unsupported request %T", req)
	}

	order.Amount, order.TaxAmount = pricing.TotalOf(order.OrderLines)

	return order, nil
}

func (s *service) fail(c context.Context, checkoutUID string, cause error) {
	s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Delayed payment failed: %s", cause)
	_, err := s.attempts.Fail(c, checkoutUID, cause)
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error recording failure: %s", err)
	}
}

// fullscreen renders the provider checkout outside of any frame
func (s *service) fullscreen(c context.Context, checkoutUID string) (ProviderPayment, error) {
	checkoutContext, found, err := s.attempts.Get(c, checkoutUID)
	if err != nil {
		return ProviderPayment{}, err
	}
	if !found || checkoutContext.ProviderReference == "" {
		return ProviderPayment{}, myerrors.NewNotFoundError(fmt.Errorf("no delayed payment for checkout %s", checkoutUID))
	}

	payment, err := s.payer.GetPayment(c, checkoutContext.ProviderReference)
	if err != nil {
		return ProviderPayment{}, err
	}
	if payment.HTMLSnippet == "" && payment.RedirectURL == "" {
		return ProviderPayment{}, myerrors.NewPaymentError(errNoCheckoutContent)
	}
	return payment, nil
}

func (s *service) webhookNotification(c context.Context, checkoutUID string, reference string) error {
	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Webhook: status update on payment '%s'", reference)

	payment, err := s.payer.GetPayment(c, reference)
	if err != nil {
		return err
	}

	providerName := s.payer.ProviderName()
	_, err = s.attempts.Update(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		// must be idempotent
		if checkoutContext.ProviderReference != "" && checkoutContext.ProviderReference != payment.Reference {
			return myerrors.NewInvalidInputErrorf("payment %s does not belong to checkout %s", payment.Reference, checkoutUID)
		}
		if checkoutContext.CheckoutStatus == payment.Status {
			return nil
		}
		checkoutContext.CheckoutStatus = payment.Status
		checkoutContext.CheckoutStatusDetails = payment.ProviderStatus

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:           checkoutUID,
			ProviderName:          providerName,
			PaymentMethod:         string(checkoutapi.PaymentMethodDelayed),
			CheckoutStatus:        payment.Status,
			CheckoutStatusDetails: payment.ProviderStatus,
		})
	})
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusNotFound {
			s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Webhook for unknown checkout")
			return nil
		}
		return err
	}

	return nil
}

func fullscreenURL(baseURL string, checkoutUID string) string {
	return fmt.Sprintf("%s/checkout/%s/delayed/fullscreen", baseURL, checkoutUID)
}
