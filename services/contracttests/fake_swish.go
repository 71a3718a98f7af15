package contracttests

import (
	"context"
	"fmt"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/services/mobilepayment"
)

// Message codes the Swish simulator answers with an error
const (
	MessageForcingInvalidPayer = "BE18"
	MessageForcingDecline      = "RF07"
)

// FakeSwish behaves like the Swish merchant simulator, without the need for certificates.
type FakeSwish struct {
	Store *mystore.InMemoryStore[mobilepayment.SwishPayment]
}

func NewFakeSwish() *FakeSwish {
	store, _, _ := mystore.NewInMemoryStore[mobilepayment.SwishPayment](context.Background())
	return &FakeSwish{
		Store: store,
	}
}

func (f *FakeSwish) RequestPayment(ctx context.Context, instructionUUID string, request mobilepayment.SwishPaymentRequest) error {
	// Dirty exception coded into fake, just like the simulator does
	if request.Message == MessageForcingInvalidPayer {
		return myerrors.NewPaymentError(fmt.Errorf("error requesting swish payment: BE18 Payer alias is invalid"))
	}

	return f.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		_, exists, err := f.Store.Get(ctx, instructionUUID)
		if err != nil {
			return err
		}
		if exists {
			return myerrors.NewPaymentError(fmt.Errorf("error requesting swish payment: RP06 A payment request already exists for that payer"))
		}

		status := mobilepayment.SwishStatusCreated
		if request.Message == MessageForcingDecline {
			status = mobilepayment.SwishStatusDeclined
		}
		return f.Store.Put(ctx, instructionUUID, mobilepayment.SwishPayment{
			ID:                    instructionUUID,
			PayeePaymentReference: request.PayeePaymentReference,
			CallbackURL:           request.CallbackURL,
			PayerAlias:            request.PayerAlias,
			PayeeAlias:            request.PayeeAlias,
			Amount:                request.Amount,
			Currency:              request.Currency,
			Message:               request.Message,
			Status:                status,
		})
	})
}

func (f *FakeSwish) GetPaymentRequest(ctx context.Context, instructionUUID string) (mobilepayment.SwishPayment, error) {
	payment, exists, err := f.Store.Get(ctx, instructionUUID)
	if err != nil {
		return mobilepayment.SwishPayment{}, err
	}
	if !exists {
		return mobilepayment.SwishPayment{}, myerrors.NewNotFoundError(fmt.Errorf("swish payment %s not found", instructionUUID))
	}
	return payment, nil
}

// Approve simulates the payer confirming the request in the Swish app
func (f *FakeSwish) Approve(ctx context.Context, instructionUUID string) error {
	return f.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		payment, exists, err := f.Store.Get(ctx, instructionUUID)
		if err != nil {
			return err
		}
		if !exists {
			return myerrors.NewNotFoundError(fmt.Errorf("swish payment %s not found", instructionUUID))
		}
		if payment.Status != mobilepayment.SwishStatusCreated {
			return myerrors.NewConflictError(fmt.Errorf("swish payment %s is already %s", instructionUUID, payment.Status))
		}
		payment.Status = mobilepayment.SwishStatusPaid
		payment.PaymentReference = "P" + instructionUUID
		return f.Store.Put(ctx, instructionUUID, payment)
	})
}
