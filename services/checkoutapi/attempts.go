package checkoutapi

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
)

// A submitting attempt older than this is considered abandoned and may be overtaken.
const StaleAttemptAfter = 2 * time.Minute

// Attempts guards against more than one payment initiation in flight per checkout instance.
type Attempts struct {
	store mystore.Store[CheckoutContext]
	nower mytime.Nower
}

func NewAttempts(store mystore.Store[CheckoutContext], nower mytime.Nower) *Attempts {
	return &Attempts{
		store: store,
		nower: nower,
	}
}

// Begin moves the checkout into submitting, creating it when needed.
func (a *Attempts) Begin(c context.Context, checkoutUID string, method PaymentMethod) (CheckoutContext, error) {
	var result CheckoutContext
	err := a.store.RunInTransaction(c, func(c context.Context) error {
		now := a.nower.Now()

		checkoutContext, found, err := a.store.Get(c, checkoutUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching checkout %s: %s", checkoutUID, err))
		}
		if !found {
			checkoutContext = NewCheckoutContext(checkoutUID, now)
		}

		if checkoutContext.AttemptState == AttemptStateSubmitting &&
			checkoutContext.AttemptStartedAt != nil &&
			now.Sub(*checkoutContext.AttemptStartedAt) < StaleAttemptAfter {
			return myerrors.NewConflictError(fmt.Errorf("a %s payment for checkout %s is already being submitted", checkoutContext.PaymentMethod, checkoutUID))
		}

		checkoutContext.PaymentMethod = method
		checkoutContext.AttemptState = AttemptStateSubmitting
		checkoutContext.AttemptStartedAt = &now
		checkoutContext.LastModified = &now
		checkoutContext.LastError = ""

		err = a.store.Put(c, checkoutUID, checkoutContext)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing checkout %s: %s", checkoutUID, err))
		}
		result = checkoutContext
		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}
	return result, nil
}

// Settle marks the attempt as successfully handed over to the provider. update runs within the
// transaction, so events published from it are only sent when the checkout is stored.
func (a *Attempts) Settle(c context.Context, checkoutUID string, update func(c context.Context, checkoutContext *CheckoutContext) error) (CheckoutContext, error) {
	return a.modify(c, checkoutUID, func(c context.Context, checkoutContext *CheckoutContext) error {
		checkoutContext.AttemptState = AttemptStateSettled
		checkoutContext.LastError = ""
		if update != nil {
			return update(c, checkoutContext)
		}
		return nil
	})
}

func (a *Attempts) Fail(c context.Context, checkoutUID string, cause error) (CheckoutContext, error) {
	return a.modify(c, checkoutUID, func(c context.Context, checkoutContext *CheckoutContext) error {
		checkoutContext.AttemptState = AttemptStateError
		checkoutContext.LastError = myerrors.GetMessage(cause)
		return nil
	})
}

// Reset returns a sent or failed attempt to idle and forgets the payer
func (a *Attempts) Reset(c context.Context, checkoutUID string) (CheckoutContext, error) {
	return a.modify(c, checkoutUID, func(c context.Context, checkoutContext *CheckoutContext) error {
		switch checkoutContext.AttemptState {
		case AttemptStateSettled, AttemptStateError:
		case AttemptStateSubmitting:
			return myerrors.NewConflictError(fmt.Errorf("checkout %s is still being submitted", checkoutUID))
		default:
			return myerrors.NewInvalidInputErrorf("checkout %s has nothing to send again", checkoutUID)
		}
		checkoutContext.AttemptState = AttemptStateIdle
		checkoutContext.AttemptStartedAt = nil
		checkoutContext.PayerAlias = ""
		checkoutContext.LastError = ""
		return nil
	})
}

// Update changes the checkout without touching the attempt state; used by provider notifications.
func (a *Attempts) Update(c context.Context, checkoutUID string, update func(c context.Context, checkoutContext *CheckoutContext) error) (CheckoutContext, error) {
	return a.modify(c, checkoutUID, update)
}

func (a *Attempts) Get(c context.Context, checkoutUID string) (CheckoutContext, bool, error) {
	checkoutContext, found, err := a.store.Get(c, checkoutUID)
	if err != nil {
		return CheckoutContext{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching checkout %s: %s", checkoutUID, err))
	}
	return checkoutContext, found, nil
}

func (a *Attempts) modify(c context.Context, checkoutUID string, modifier func(c context.Context, checkoutContext *CheckoutContext) error) (CheckoutContext, error) {
	var result CheckoutContext
	err := a.store.RunInTransaction(c, func(c context.Context) error {
		checkoutContext, found, err := a.store.Get(c, checkoutUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching checkout %s: %s", checkoutUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("checkout %s not found", checkoutUID))
		}

		// must be idempotent
		err = modifier(c, &checkoutContext)
		if err != nil {
			return err
		}

		now := a.nower.Now()
		checkoutContext.LastModified = &now

		err = a.store.Put(c, checkoutUID, checkoutContext)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing checkout %s: %s", checkoutUID, err))
		}
		result = checkoutContext
		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}
	return result, nil
}
