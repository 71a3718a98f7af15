// Package pricing holds the fee models applied per payment path.
//
// The card path charges the customer a service fee on top of the base price. The delayed
// payment path embeds tax in its order lines. Both models live side by side and are
// injected per provider; neither is derived from the other.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	DefaultServiceFeeRate     = decimal.RequireFromString("0.06")
	DefaultTaxRateBasisPoints = int64(2000)
	DefaultPlatformFeeRate    = decimal.RequireFromString("0.20")

	hundred = decimal.NewFromInt(100)
)

type Breakdown struct {
	BasePrice  decimal.Decimal
	ServiceFee decimal.Decimal
	TotalPrice decimal.Decimal
}

type FeePolicy interface {
	Fee(base decimal.Decimal) decimal.Decimal
}

type ServiceFeePolicy struct {
	Rate decimal.Decimal
}

func (p ServiceFeePolicy) Fee(base decimal.Decimal) decimal.Decimal {
	return base.Mul(p.Rate).Round(2)
}

// Breakdown prices quantity items of unitPrice, both in major units
func (p ServiceFeePolicy) Breakdown(unitPrice decimal.Decimal, quantity int) Breakdown {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	fee := p.Fee(base)
	return Breakdown{
		BasePrice:  base,
		ServiceFee: fee,
		TotalPrice: base.Add(fee),
	}
}

type TaxPolicy struct {
	RateBasisPoints int64
}

// Tax works in minor units
func (p TaxPolicy) Tax(amountInMinor int64) int64 {
	return decimal.NewFromInt(amountInMinor).
		Mul(decimal.NewFromInt(p.RateBasisPoints)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

type CommissionReport struct {
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	ChefEarnings decimal.Decimal `json:"chef_earnings"`
}

type CommissionPolicy struct {
	PlatformRate decimal.Decimal
}

func (p CommissionPolicy) Fee(total decimal.Decimal) decimal.Decimal {
	return total.Mul(p.PlatformRate).Round(2)
}

// Split keeps PlatformFee + ChefEarnings == TotalAmount exactly
func (p CommissionPolicy) Split(total decimal.Decimal) CommissionReport {
	fee := p.Fee(total)
	return CommissionReport{
		TotalAmount:  total,
		PlatformFee:  fee,
		ChefEarnings: total.Sub(fee),
	}
}

type Calculator struct {
	ServiceFee ServiceFeePolicy
	Tax        TaxPolicy
	Commission CommissionPolicy
}

func NewCalculator() Calculator {
	return Calculator{
		ServiceFee: ServiceFeePolicy{Rate: DefaultServiceFeeRate},
		Tax:        TaxPolicy{RateBasisPoints: DefaultTaxRateBasisPoints},
		Commission: CommissionPolicy{PlatformRate: DefaultPlatformFeeRate},
	}
}

// CalculateCardPrice applies the default 6% service fee
func CalculateCardPrice(unitPrice decimal.Decimal, quantity int) Breakdown {
	return NewCalculator().ServiceFee.Breakdown(unitPrice, quantity)
}

func ToMinor(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

type OrderLineKind string

const (
	OrderLineKindPhysical    OrderLineKind = "physical"
	OrderLineKindDigital     OrderLineKind = "digital"
	OrderLineKindShippingFee OrderLineKind = "shipping_fee"
	OrderLineKindSalesTax    OrderLineKind = "sales_tax"
	OrderLineKindDiscount    OrderLineKind = "discount"
)

func (k OrderLineKind) Valid() bool {
	switch k {
	case OrderLineKindPhysical, OrderLineKindDigital, OrderLineKindShippingFee, OrderLineKindSalesTax, OrderLineKindDiscount:
		return true
	}
	return false
}

// OrderLine amounts are in minor units, tax rate in basis points
type OrderLine struct {
	Kind           OrderLineKind `json:"type"`
	Name           string        `json:"name"`
	Quantity       int           `json:"quantity"`
	UnitPrice      int64         `json:"unit_price"`
	TaxRate        int64         `json:"tax_rate"`
	TotalAmount    int64         `json:"total_amount"`
	TotalTaxAmount int64         `json:"total_tax_amount"`
}

func NewOrderLine(kind OrderLineKind, name string, unitPrice decimal.Decimal, quantity int, policy TaxPolicy) OrderLine {
	unitInMinor := ToMinor(unitPrice)
	total := unitInMinor * int64(quantity)
	return OrderLine{
		Kind:           kind,
		Name:           name,
		Quantity:       quantity,
		UnitPrice:      unitInMinor,
		TaxRate:        policy.RateBasisPoints,
		TotalAmount:    total,
		TotalTaxAmount: policy.Tax(total),
	}
}

func (l OrderLine) Validate() error {
	if !l.Kind.Valid() {
		return fmt.Errorf("order line '%s': unsupported type '%s'", l.Name, l.Kind)
	}
	if l.Quantity < 1 {
		return fmt.Errorf("order line '%s': quantity must be positive, got %d", l.Name, l.Quantity)
	}
	if l.TotalAmount != l.UnitPrice*int64(l.Quantity) {
		return fmt.Errorf("order line '%s': total %d does not equal %d x %d", l.Name, l.TotalAmount, l.Quantity, l.UnitPrice)
	}
	expectedTax := TaxPolicy{RateBasisPoints: l.TaxRate}.Tax(l.TotalAmount)
	if l.TotalTaxAmount != expectedTax {
		return fmt.Errorf("order line '%s': tax %d does not match rate %d (expected %d)", l.Name, l.TotalTaxAmount, l.TaxRate, expectedTax)
	}
	return nil
}

func TotalOf(lines []OrderLine) (amount int64, tax int64) {
	for _, l := range lines {
		amount += l.TotalAmount
		tax += l.TotalTaxAmount
	}
	return amount, tax
}
