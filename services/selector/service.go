package selector

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mylog"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/pricing"
)

var methodLabels = map[checkoutapi.PaymentMethod]string{
	checkoutapi.PaymentMethodCard:    "Kort",
	checkoutapi.PaymentMethodMobile:  "Swish",
	checkoutapi.PaymentMethodDelayed: "Betala senare",
}

type service struct {
	logger    mylog.Logger
	attempts  *checkoutapi.Attempts
	uuider    myuuid.UUIDer
	feePolicy pricing.ServiceFeePolicy
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, attempts *checkoutapi.Attempts, uuider myuuid.UUIDer, feePolicy pricing.ServiceFeePolicy) *service {
	return &service{
		logger:    logger,
		attempts:  attempts,
		uuider:    uuider,
		feePolicy: feePolicy,
	}
}

func (s *service) newCheckoutUID() string {
	return s.uuider.Create()
}

type methodTab struct {
	Method   string
	Label    string
	Selected bool
	URL      string
}

type selectorPage struct {
	CheckoutUID string
	Method      string
	Tabs        []methodTab
	Checkout    checkoutapi.Checkout
	Hidden      url.Values
	BasePrice   string
	ServiceFee  string
	TotalPrice  string
	// mobile widget
	MobileAmount        string
	MobileSent          bool
	MobileAmountDisplay string
	LastError           string
}

// selectorPage has no side effects: switching method does not touch payments in flight
func (s *service) selectorPage(c context.Context, checkoutUID string, method checkoutapi.PaymentMethod, checkout checkoutapi.Checkout) (selectorPage, error) {
	err := checkout.Validate()
	if err != nil {
		return selectorPage{}, err
	}

	hidden, err := checkout.ToForm()
	if err != nil {
		return selectorPage{}, myerrors.NewInternalError(err)
	}

	breakdown := s.feePolicy.Breakdown(checkout.UnitPrice, checkout.Quantity)
	page := selectorPage{
		CheckoutUID:  checkoutUID,
		Method:       string(method),
		Tabs:         tabsOf(checkoutUID, method, hidden),
		Checkout:     checkout,
		Hidden:       hidden,
		BasePrice:    breakdown.BasePrice.StringFixed(2),
		ServiceFee:   breakdown.ServiceFee.StringFixed(2),
		TotalPrice:   breakdown.TotalPrice.StringFixed(2),
		MobileAmount: breakdown.BasePrice.StringFixed(2),
	}

	checkoutContext, found, err := s.attempts.Get(c, checkoutUID)
	if err != nil {
		return selectorPage{}, err
	}
	if found && checkoutContext.PaymentMethod == method {
		if checkoutContext.AttemptState == checkoutapi.AttemptStateError {
			page.LastError = checkoutContext.LastError
		}
		if method == checkoutapi.PaymentMethodMobile && checkoutContext.AttemptState == checkoutapi.AttemptStateSettled {
			page.MobileSent = true
			page.MobileAmountDisplay = pricing.FromMinor(checkoutContext.AmountInCents).StringFixed(2) + " kr"
		}
	}

	return page, nil
}

func tabsOf(checkoutUID string, selected checkoutapi.PaymentMethod, hidden url.Values) []methodTab {
	tabs := make([]methodTab, 0, len(checkoutapi.PaymentMethods))
	for _, m := range checkoutapi.PaymentMethods {
		values := url.Values{}
		for k, v := range hidden {
			values[k] = v
		}
		values.Set("method", string(m))
		tabs = append(tabs, methodTab{
			Method:   string(m),
			Label:    methodLabels[m],
			Selected: m == selected,
			URL:      fmt.Sprintf("/checkout/%s?%s", checkoutUID, values.Encode()),
		})
	}
	return tabs
}
