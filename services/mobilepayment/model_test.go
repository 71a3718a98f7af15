package mobilepayment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/services/checkoutevents"
)

func TestNormalizePayerAlias(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		valid    bool
	}{
		{input: "0701234567", expected: "46701234567", valid: true},
		{input: "46701234567", expected: "46701234567", valid: true},
		{input: "701234567", expected: "701234567", valid: false},
		{input: "070-123 45 67", expected: "46701234567", valid: true},
		{input: "+46 70 123 45 67", expected: "46701234567", valid: true},
		{input: "07012345678", expected: "467012345678", valid: false},
		{input: "", expected: "", valid: false},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			alias := NormalizePayerAlias(tc.input)
			assert.Equal(t, tc.expected, alias)
			err := ValidatePayerAlias(alias)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
			}
		})
	}
}

func TestValidateMobilePaymentRequest(t *testing.T) {
	testCases := []struct {
		name    string
		req     MobilePaymentRequest
		wantErr bool
	}{
		{name: "valid", req: MobilePaymentRequest{Amount: decimal.RequireFromString("245.00"), PayerAlias: "46701234567", Message: "Köttbullar"}},
		{name: "invalid alias", req: MobilePaymentRequest{Amount: decimal.RequireFromString("245.00"), PayerAlias: "701234567"}, wantErr: true},
		{name: "zero amount", req: MobilePaymentRequest{Amount: decimal.Zero, PayerAlias: "46701234567"}, wantErr: true},
		{name: "three decimals", req: MobilePaymentRequest{Amount: decimal.RequireFromString("1.005"), PayerAlias: "46701234567"}, wantErr: true},
		{name: "long message", req: MobilePaymentRequest{Amount: decimal.NewFromInt(1), PayerAlias: "46701234567", Message: "012345678901234567890123456789012345678901234567890"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "245.00 kr", FormatAmount(decimal.NewFromInt(245)))
	assert.Equal(t, "89.50 kr", FormatAmount(decimal.RequireFromString("89.5")))
}

func TestClassifySwishStatus(t *testing.T) {
	assert.Equal(t, checkoutevents.CheckoutStatusSuccess, classifySwishStatus("PAID"))
	assert.Equal(t, checkoutevents.CheckoutStatusPending, classifySwishStatus("CREATED"))
	assert.Equal(t, checkoutevents.CheckoutStatusCancelled, classifySwishStatus("DECLINED"))
	assert.Equal(t, checkoutevents.CheckoutStatusCancelled, classifySwishStatus("CANCELLED"))
	assert.Equal(t, checkoutevents.CheckoutStatusFailed, classifySwishStatus("ERROR"))
	assert.Equal(t, checkoutevents.CheckoutStatusOther, classifySwishStatus("SOMETHING"))

	assert.Equal(t, "ERROR: TM01 Swish timed out", statusDetailsOf(SwishPayment{Status: "ERROR", ErrorCode: "TM01", ErrorMessage: "Swish timed out"}))
	assert.Equal(t, "PAID", statusDetailsOf(SwishPayment{Status: "PAID"}))
}
