package cardcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

type service struct {
	logger    mylog.Logger
	attempts  *checkoutapi.Attempts
	payer     Payer
	publisher mypublisher.Publisher
	feePolicy pricing.ServiceFeePolicy
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(apiKey string, logger mylog.Logger, attempts *checkoutapi.Attempts, payer Payer, publisher mypublisher.Publisher, feePolicy pricing.ServiceFeePolicy) *service {
	payer.UseAPIKey(apiKey)
	return &service{
		logger:    logger,
		attempts:  attempts,
		payer:     payer,
		publisher: publisher,
		feePolicy: feePolicy,
	}
}

// initiateCardCheckout creates a checkout session at stripe and returns the url the customer must be sent to
func (s *service) initiateCardCheckout(c context.Context, checkoutUID string, baseURL string, req CardSessionRequest) (CardSessionResponse, error) {
	if req.PriceID == "" {
		return CardSessionResponse{}, myerrors.NewInvalidInputErrorf("missing priceId")
	}
	if req.Quantity < 1 {
		return CardSessionResponse{}, myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", req.Quantity)
	}

	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Start card checkout for %dx %s (%s)", req.Quantity, req.DishName, req.PriceID)

	_, err := s.attempts.Begin(c, checkoutUID, checkoutapi.PaymentMethodCard)
	if err != nil {
		return CardSessionResponse{}, err
	}

	session, err := s.createSession(c, checkoutUID, baseURL, req)
	if err != nil {
		s.fail(c, checkoutUID, err)
		return CardSessionResponse{}, err
	}

	_, err = s.attempts.Settle(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		checkoutContext.PaymentProvider = providerName
		checkoutContext.ProviderReference = session.ID
		checkoutContext.SessionID = session.ID
		checkoutContext.AmountInCents = session.AmountTotal
		checkoutContext.Currency = string(session.Currency)
		checkoutContext.CheckoutStatus = checkoutevents.CheckoutStatusPending

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:       checkoutUID,
			ProviderName:      providerName,
			PaymentMethod:     string(checkoutapi.PaymentMethodCard),
			AmountInCents:     session.AmountTotal,
			Currency:          string(session.Currency),
			ProviderReference: session.ID,
		})
	})
	if err != nil {
		// The session exists at stripe; the confirmation page can still find it through the query parameter.
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error remembering session %s: %s", session.ID, err)
	}

	return CardSessionResponse{
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

func (s *service) createSession(c context.Context, checkoutUID string, baseURL string, req CardSessionRequest) (stripe.CheckoutSession, error) {
	dishPrice, err := s.payer.GetPrice(c, req.PriceID)
	if err != nil {
		return stripe.CheckoutSession{}, err
	}

	params := stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(fmt.Sprintf("%s/checkout/%s/confirmation?session_id=%s", baseURL, checkoutUID, sessionIDPlaceholder)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/checkout/%s?method=%s", baseURL, checkoutUID, checkoutapi.PaymentMethodCard)),
		ClientReferenceID: stripe.String(checkoutUID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
	}
	params.AddMetadata(metadataCheckoutUID, checkoutUID)
	params.AddMetadata(metadataDishName, req.DishName)
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	basePrice := pricing.FromMinor(dishPrice.UnitAmount * int64(req.Quantity))
	fee := pricing.ToMinor(s.feePolicy.Fee(basePrice))
	if fee > 0 {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(dishPrice.Currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(serviceFeeLineName),
				},
				UnitAmount: stripe.Int64(fee),
			},
			Quantity: stripe.Int64(1),
		})
	}

	return s.payer.CreateCheckoutSession(c, params)
}

func (s *service) fail(c context.Context, checkoutUID string, cause error) {
	s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Card checkout failed: %s", cause)
	_, err := s.attempts.Fail(c, checkoutUID, cause)
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error recording failure: %s", err)
	}
}

func (s *service) webhookNotification(c context.Context, event stripe.Event) error {
	eventType := string(event.Type)
	if event.Data == nil {
		return myerrors.NewInvalidInputErrorf("stripe event %s without data", event.ID)
	}

	session := stripe.CheckoutSession{}
	err := json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		return myerrors.NewInvalidInputErrorf("error parsing checkout session in event %s: %s", event.ID, err)
	}

	status, handled := checkoutStatusOf(eventType, session)
	if !handled {
		s.logger.Log(c, "", mylog.SeverityInfo, "Ignore stripe event %s of type %s", event.ID, eventType)
		return nil
	}

	checkoutUID := session.Metadata[metadataCheckoutUID]
	if checkoutUID == "" {
		checkoutUID = session.ClientReferenceID
	}
	if checkoutUID == "" {
		s.logger.Log(c, "", mylog.SeverityWarn, "Stripe event %s for session %s carries no checkout", event.ID, session.ID)
		return nil
	}

	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Stripe event %s: session %s -> %s", eventType, session.ID, status)

	_, err = s.attempts.Update(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		// must be idempotent
		if checkoutContext.CheckoutStatus == status {
			return nil
		}
		checkoutContext.CheckoutStatus = status
		checkoutContext.CheckoutStatusDetails = string(session.PaymentStatus)
		if session.AmountTotal > 0 {
			checkoutContext.AmountInCents = session.AmountTotal
		}

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:           checkoutUID,
			ProviderName:          providerName,
			PaymentMethod:         string(checkoutapi.PaymentMethodCard),
			CheckoutStatus:        status,
			CheckoutStatusDetails: string(session.PaymentStatus),
		})
	})
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusNotFound {
			s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Stripe event %s for unknown checkout", event.ID)
			return nil
		}
		return err
	}

	return nil
}

func checkoutStatusOf(eventType string, session stripe.CheckoutSession) (checkoutevents.CheckoutStatus, bool) {
	switch eventType {
	case "checkout.session.completed":
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			// async payment methods settle later
			return checkoutevents.CheckoutStatusPending, true
		}
		return checkoutevents.CheckoutStatusSuccess, true
	case "checkout.session.async_payment_succeeded":
		return checkoutevents.CheckoutStatusSuccess, true
	case "checkout.session.async_payment_failed":
		return checkoutevents.CheckoutStatusFailed, true
	case "checkout.session.expired":
		return checkoutevents.CheckoutStatusExpired, true
	default:
		return checkoutevents.CheckoutStatusUndefined, false
	}
}

var errMissingSignature = errors.New("missing Stripe-Signature header")
