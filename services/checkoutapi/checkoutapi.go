package checkoutapi

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"
	"github.com/shopspring/decimal"

	"github.com/MarcGrol/homechef/lib/myerrors"
)

// Checkout is what a dish page hands over to the payment method selector.
type Checkout struct {
	PriceID        string          `form:"priceId"`
	DishID         string          `form:"dishId"`
	DishName       string          `form:"dishName"`
	UnitPrice      decimal.Decimal `form:"unitPrice"`
	Quantity       int             `form:"quantity"`
	Description    string          `form:"description"`
	OrderReference string          `form:"orderReference"`
	CustomerEmail  string          `form:"customerEmail"`
}

func (c Checkout) Validate() error {
	if c.Quantity < 1 {
		return myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", c.Quantity)
	}
	if c.UnitPrice.IsNegative() {
		return myerrors.NewInvalidInputErrorf("unit price must not be negative, got %s", c.UnitPrice)
	}
	return nil
}

func newDecoder() *formcodec.Decoder {
	decoder := formcodec.NewDecoder()
	decoder.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		if vals[0] == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(vals[0])
	}, decimal.Decimal{})
	return decoder
}

func newEncoder() *formcodec.Encoder {
	encoder := formcodec.NewEncoder()
	encoder.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		return []string{x.(decimal.Decimal).String()}, nil
	}, decimal.Decimal{})
	return encoder
}

func NewFromRequest(r *http.Request) (Checkout, error) {
	err := r.ParseForm()
	if err != nil {
		return Checkout{}, myerrors.NewInvalidInputError(err)
	}
	return NewFromValues(r.Form)
}

// NewFromValues defaults quantity to 1 when absent
func NewFromValues(values url.Values) (Checkout, error) {
	checkout := Checkout{}
	err := newDecoder().Decode(&checkout, values)
	if err != nil {
		return checkout, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	if values.Get("quantity") == "" {
		checkout.Quantity = 1
	}

	return checkout, nil
}

func (c Checkout) ToForm() (url.Values, error) {
	values, err := newEncoder().Encode(c)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}

	return values, nil
}
