package mobilepayment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/checkoutevents"
	"github.com/MarcGrol/homechef/services/pricing"
)

type service struct {
	logger     mylog.Logger
	attempts   *checkoutapi.Attempts
	payer      Payer
	uuider     myuuid.UUIDer
	publisher  mypublisher.Publisher
	payeeAlias string
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, attempts *checkoutapi.Attempts, payer Payer, uuider myuuid.UUIDer, publisher mypublisher.Publisher, payeeAlias string) *service {
	return &service{
		logger:     logger,
		attempts:   attempts,
		payer:      payer,
		uuider:     uuider,
		publisher:  publisher,
		payeeAlias: payeeAlias,
	}
}

func (s *service) initiateMobilePayment(c context.Context, checkoutUID string, baseURL string, req MobilePaymentRequest) (MobilePaymentResponse, error) {
	req.PayerAlias = NormalizePayerAlias(req.PayerAlias)
	err := req.Validate()
	if err != nil {
		return MobilePaymentResponse{}, err
	}

	_, err = s.attempts.Begin(c, checkoutUID, checkoutapi.PaymentMethodMobile)
	if err != nil {
		return MobilePaymentResponse{}, err
	}

	instructionUUID := s.uuider.Create()
	err = s.payer.RequestPayment(c, instructionUUID, SwishPaymentRequest{
		PayeePaymentReference: req.OrderID,
		CallbackURL:           fmt.Sprintf("%s/mobile/callback/%s", baseURL, checkoutUID),
		PayerAlias:            req.PayerAlias,
		PayeeAlias:            s.payeeAlias,
		Amount:                req.Amount.StringFixed(2),
		Currency:              currencySEK,
		Message:               req.Message,
	})
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Swish payment request failed: %s", err)
		_, failErr := s.attempts.Fail(c, checkoutUID, err)
		if failErr != nil {
			s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error recording failure: %s", failErr)
		}
		return MobilePaymentResponse{}, err
	}

	amountInCents := pricing.ToMinor(req.Amount)
	remember := func(checkoutContext *checkoutapi.CheckoutContext) {
		checkoutContext.PaymentProvider = providerName
		checkoutContext.ProviderReference = instructionUUID
		checkoutContext.PayerAlias = req.PayerAlias
		checkoutContext.Message = req.Message
		checkoutContext.OrderReference = req.OrderID
		checkoutContext.AmountInCents = amountInCents
		checkoutContext.Currency = currencySEK
		checkoutContext.CheckoutStatus = checkoutevents.CheckoutStatusPending
	}

	_, err = s.attempts.Settle(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		remember(checkoutContext)

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:       checkoutUID,
			ProviderName:      providerName,
			PaymentMethod:     string(checkoutapi.PaymentMethodMobile),
			AmountInCents:     amountInCents,
			Currency:          currencySEK,
			OrderReference:    req.OrderID,
			ProviderReference: instructionUUID,
		})
	})
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error publishing start of swish payment request %s: %s", instructionUUID, err)

		// swish already accepted the request: its callback must still find the instruction
		_, err = s.attempts.Settle(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
			remember(checkoutContext)
			return nil
		})
		if err != nil {
			s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error remembering swish payment request %s: %s", instructionUUID, err)
		}
	}

	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Swish payment request %s sent", instructionUUID)

	return MobilePaymentResponse{
		Success: true,
		Amount:  FormatAmount(req.Amount),
	}, nil
}

// sendAgain brings a sent or failed request back to input state without contacting swish
func (s *service) sendAgain(c context.Context, checkoutUID string) error {
	_, err := s.attempts.Reset(c, checkoutUID)
	if err != nil {
		return err
	}
	return nil
}

func (s *service) callback(c context.Context, checkoutUID string, instructionUUID string) error {
	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Callback: status update on swish payment '%s'", instructionUUID)

	// Only trust what swish itself reports
	payment, err := s.payer.GetPaymentRequest(c, instructionUUID)
	if err != nil {
		return err
	}

	status := classifySwishStatus(payment.Status)
	details := statusDetailsOf(payment)
	_, err = s.attempts.Update(c, checkoutUID, func(c context.Context, checkoutContext *checkoutapi.CheckoutContext) error {
		// must be idempotent
		if checkoutContext.ProviderReference == "" {
			// the request was sent but never remembered
			checkoutContext.ProviderReference = instructionUUID
		}
		if checkoutContext.ProviderReference != instructionUUID {
			s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Ignoring callback of superseded swish payment %s", instructionUUID)
			return nil
		}
		if checkoutContext.CheckoutStatus == status {
			return nil
		}
		checkoutContext.CheckoutStatus = status
		checkoutContext.CheckoutStatusDetails = details

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID:           checkoutUID,
			ProviderName:          providerName,
			PaymentMethod:         string(checkoutapi.PaymentMethodMobile),
			CheckoutStatus:        status,
			CheckoutStatusDetails: details,
		})
	})
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusNotFound {
			s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Callback for unknown checkout")
			return nil
		}
		return err
	}

	return nil
}
