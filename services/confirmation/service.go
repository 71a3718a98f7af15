package confirmation

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/services/cardcheckout"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

type service struct {
	logger     mylog.Logger
	attempts   *checkoutapi.Attempts
	payer      cardcheckout.Payer
	nower      mytime.Nower
	commission pricing.CommissionPolicy
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, attempts *checkoutapi.Attempts, payer cardcheckout.Payer, nower mytime.Nower, commission pricing.CommissionPolicy) *service {
	return &service{
		logger:     logger,
		attempts:   attempts,
		payer:      payer,
		nower:      nower,
		commission: commission,
	}
}

func (s *service) verifyPayment(c context.Context, sessionID string) (Receipt, error) {
	if sessionID == "" {
		return Receipt{}, myerrors.NewInvalidInputErrorf("missing sessionId")
	}

	session, err := s.payer.GetCheckoutSession(c, sessionID)
	if err != nil {
		return Receipt{}, err
	}

	return receiptOf(session, s.commission), nil
}

type commissionDocument struct {
	SessionID    string
	DishName     string
	Currency     string
	TotalAmount  string
	PlatformFee  string
	ChefEarnings string
	PlatformRate string
	GeneratedAt  time.Time
}

func (s *service) generateCommissionReport(c context.Context, sessionID string) (commissionDocument, error) {
	receipt, err := s.verifyPayment(c, sessionID)
	if err != nil {
		return commissionDocument{}, err
	}
	if receipt.CommissionReport == nil {
		return commissionDocument{}, myerrors.NewInvalidInputError(fmt.Errorf("session %s is not paid (%s)", sessionID, receipt.PaymentStatus))
	}

	report := receipt.CommissionReport
	return commissionDocument{
		SessionID:    receipt.SessionID,
		DishName:     receipt.DishName,
		Currency:     receipt.Currency,
		TotalAmount:  report.TotalAmount.StringFixed(2),
		PlatformFee:  report.PlatformFee.StringFixed(2),
		ChefEarnings: report.ChefEarnings.StringFixed(2),
		PlatformRate: s.commission.PlatformRate.Shift(2).String() + "%",
		GeneratedAt:  s.nower.Now(),
	}, nil
}

type confirmationPage struct {
	CheckoutUID    string
	SessionID      string
	SessionSource  SessionSource
	HasReceipt     bool
	Receipt        Receipt
	Amount         string
	Lines          []pageLine
	TotalAmount    string
	PlatformFee    string
	ChefEarnings   string
	PaymentMethod  string
	CheckoutStatus string
	Error          string
}

type pageLine struct {
	Description string
	Quantity    int64
	Amount      string
}

// confirmationPage never fails: a failed verification is shown on the page itself
func (s *service) confirmationPage(c context.Context, checkoutUID string, querySessionID string) confirmationPage {
	page := confirmationPage{
		CheckoutUID: checkoutUID,
	}

	checkoutContext, found, err := s.attempts.Get(c, checkoutUID)
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityError, "Error fetching checkout: %s", err)
	}
	var contextPtr *checkoutapi.CheckoutContext
	if found {
		contextPtr = &checkoutContext
		page.PaymentMethod = string(checkoutContext.PaymentMethod)
		page.CheckoutStatus = string(checkoutContext.CheckoutStatus)
	}

	page.SessionID, page.SessionSource = ResolveSessionID(querySessionID, contextPtr)
	if page.SessionSource == SessionSourceNone {
		return page
	}

	receipt, err := s.verifyPayment(c, page.SessionID)
	if err != nil {
		s.logger.Log(c, checkoutUID, mylog.SeverityWarn, "Error verifying payment %s: %s", page.SessionID, err)
		page.Error = myerrors.GetMessage(err)
		return page
	}

	page.HasReceipt = true
	page.Receipt = receipt
	page.Amount = formatMinor(receipt.AmountTotal, receipt.Currency)
	for _, line := range receipt.LineItems {
		page.Lines = append(page.Lines, pageLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			Amount:      formatMinor(line.AmountTotal, receipt.Currency),
		})
	}
	if receipt.CommissionReport != nil {
		page.TotalAmount = receipt.CommissionReport.TotalAmount.StringFixed(2) + " " + receipt.Currency
		page.PlatformFee = receipt.CommissionReport.PlatformFee.StringFixed(2) + " " + receipt.Currency
		page.ChefEarnings = receipt.CommissionReport.ChefEarnings.StringFixed(2) + " " + receipt.Currency
	}

	return page
}
