package catalog

import (
	"context"
	"fmt"

	"github.com/MarcGrol/homechef/lib/myerrors"
	"github.com/MarcGrol/homechef/lib/mystore"
)

type Dish struct {
	UID              string `json:"uid"`
	Title            string `json:"title"`
	PriceID          string `json:"priceId"`
	UnitPriceInCents int64  `json:"unitPriceInCents"`
	Currency         string `json:"currency"`
	ChefUID          string `json:"chefUid"`
}

func (d Dish) Validate() error {
	if d.Title == "" {
		return myerrors.NewInvalidInputErrorf("dish %s: missing title", d.UID)
	}
	if d.UnitPriceInCents < 0 {
		return myerrors.NewInvalidInputErrorf("dish %s: negative price %d", d.UID, d.UnitPriceInCents)
	}
	if d.Currency != "SEK" {
		return myerrors.NewInvalidInputErrorf("dish %s: unsupported currency '%s'", d.UID, d.Currency)
	}
	return nil
}

//go:generate mockgen -source=catalog.go -package catalog -destination catalog_mock.go Catalog
type Catalog interface {
	GetDish(c context.Context, dishUID string) (Dish, bool, error)
}

type storeCatalog struct {
	store mystore.Store[Dish]
}

func New(store mystore.Store[Dish]) *storeCatalog {
	return &storeCatalog{
		store: store,
	}
}

func (s *storeCatalog) GetDish(c context.Context, dishUID string) (Dish, bool, error) {
	dish, found, err := s.store.Get(c, dishUID)
	if err != nil {
		return Dish{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching dish %s: %s", dishUID, err))
	}
	return dish, found, nil
}

func (s *storeCatalog) putDish(c context.Context, dish Dish) error {
	err := dish.Validate()
	if err != nil {
		return err
	}
	err = s.store.Put(c, dish.UID, dish)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing dish %s: %s", dish.UID, err))
	}
	return nil
}
