package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/homechef/lib/myconfig"
	"github.com/MarcGrol/homechef/lib/myhttpclient"
	"github.com/MarcGrol/homechef/lib/mypublisher"
	"github.com/MarcGrol/homechef/lib/mypubsub"
	"github.com/MarcGrol/homechef/lib/myqueue"
	"github.com/MarcGrol/homechef/lib/mystore"
	"github.com/MarcGrol/homechef/lib/mytime"
	"github.com/MarcGrol/homechef/lib/myuuid"
	"github.com/MarcGrol/homechef/services/cardcheckout"
	"github.com/MarcGrol/homechef/services/catalog"
	"github.com/MarcGrol/homechef/services/checkoutapi"
	"github.com/MarcGrol/homechef/services/confirmation"
	"github.com/MarcGrol/homechef/services/contracttests"
	"github.com/MarcGrol/homechef/services/delayedpayment"
	"github.com/MarcGrol/homechef/services/mobilepayment"
	"github.com/MarcGrol/homechef/services/orders"
	"github.com/MarcGrol/homechef/services/pricing"
	"github.com/MarcGrol/homechef/services/selector"
	"github.com/MarcGrol/homechef/services/termsconditions"
	"github.com/MarcGrol/homechef/services/warmup"
)

const providerTimeout = 10 * time.Second

func main() {
	configFile := flag.String("conf", "", "optional yaml config file")
	flag.Parse()

	c := context.Background()

	cfg, err := myconfig.Load(*configFile)
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err)
	}

	calculator, err := calculatorOf(cfg)
	if err != nil {
		log.Fatalf("Error creating price calculator: %s", err)
	}

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	checkoutStore, checkoutStoreCleanup, err := mystore.New[checkoutapi.CheckoutContext](c)
	if err != nil {
		log.Fatalf("Error creating checkout store: %s", err)
	}
	defer checkoutStoreCleanup()

	dishStore, dishStoreCleanup, err := mystore.New[catalog.Dish](c)
	if err != nil {
		log.Fatalf("Error creating dish store: %s", err)
	}
	defer dishStoreCleanup()

	orderStore, orderStoreCleanup, err := mystore.New[orders.Order](c)
	if err != nil {
		log.Fatalf("Error creating order store: %s", err)
	}
	defer orderStoreCleanup()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	attempts := checkoutapi.NewAttempts(checkoutStore, nower)
	dishes := catalog.New(dishStore)

	cardPayer := cardcheckout.NewPayer()

	delayedPayer, err := delayedPayerOf(cfg)
	if err != nil {
		log.Fatalf("Error creating delayed payer: %s", err)
	}

	mobilePayer, err := mobilePayerOf(cfg)
	if err != nil {
		log.Fatalf("Error creating mobile payer: %s", err)
	}

	services := []interface {
		RegisterEndpoints(c context.Context, router *mux.Router) error
	}{
		catalog.NewWebService(dishes),
		selector.NewWebService(selector.Config{
			FeePolicy: calculator.ServiceFee,
		}, attempts, uuider),
		cardcheckout.NewWebService(cardcheckout.Config{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BaseURL:       cfg.BaseURL,
			FeePolicy:     calculator.ServiceFee,
		}, attempts, cardPayer, publisher),
		delayedpayment.NewWebService(delayedpayment.Config{
			BaseURL:   cfg.BaseURL,
			TaxPolicy: calculator.Tax,
		}, attempts, dishes, delayedPayer, publisher),
		mobilepayment.NewWebService(mobilepayment.Config{
			BaseURL:    cfg.BaseURL,
			PayeeAlias: cfg.Swish.PayeeAlias,
		}, attempts, mobilePayer, uuider, publisher),
		confirmation.NewWebService(confirmation.Config{
			CommissionPolicy: calculator.Commission,
		}, attempts, cardPayer, nower),
		orders.NewWebService(orders.Config{
			BaseURL: baseURLOf(cfg),
		}, orderStore, nower, pubsub),
		termsconditions.NewService(publisher),
		warmup.NewService(attempts, dishes, uuider, publisher),
	}
	for _, s := range services {
		err = s.RegisterEndpoints(c, router)
		if err != nil {
			log.Fatalf("Error registering endpoints: %s", err)
		}
	}

	startWebServerBlocking(cfg.Port, router)
}

func calculatorOf(cfg *myconfig.Config) (pricing.Calculator, error) {
	serviceFeeRate, err := cfg.ServiceFeeRate()
	if err != nil {
		return pricing.Calculator{}, err
	}
	platformFeeRate, err := cfg.PlatformFeeRate()
	if err != nil {
		return pricing.Calculator{}, err
	}
	return pricing.Calculator{
		ServiceFee: pricing.ServiceFeePolicy{Rate: serviceFeeRate},
		Tax:        pricing.TaxPolicy{RateBasisPoints: cfg.Pricing.TaxRateBasisPoints},
		Commission: pricing.CommissionPolicy{PlatformRate: platformFeeRate},
	}, nil
}

func delayedPayerOf(cfg *myconfig.Config) (delayedpayment.Payer, error) {
	if cfg.DelayedProvider == myconfig.DelayedProviderMollie {
		return delayedpayment.NewMolliePayer(cfg.Mollie.APIKey)
	}

	httpClient, err := myhttpclient.New(
		myhttpclient.WithTimeout(providerTimeout),
		myhttpclient.WithBasicAuth(cfg.Klarna.Username, cfg.Klarna.Password),
	)
	if err != nil {
		return nil, err
	}
	return delayedpayment.NewKlarnaPayer(cfg.Klarna.BaseURL, httpClient), nil
}

func mobilePayerOf(cfg *myconfig.Config) (mobilepayment.Payer, error) {
	if cfg.Swish.CertFile == "" {
		log.Printf("No swish certificate configured: using the in-memory swish fake")
		return contracttests.NewFakeSwish(), nil
	}

	httpClient, err := myhttpclient.New(
		myhttpclient.WithTimeout(providerTimeout),
		myhttpclient.WithClientCertificate(cfg.Swish.CertFile, cfg.Swish.KeyFile, cfg.Swish.CAFile),
	)
	if err != nil {
		return nil, err
	}
	return mobilepayment.NewSwishPayer(cfg.Swish.BaseURL, httpClient), nil
}

// pubsub pushes need an absolute url before any request has arrived
func baseURLOf(cfg *myconfig.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return fmt.Sprintf("http://localhost:%s", cfg.Port)
}

func startWebServerBlocking(port string, router *mux.Router) {
	log.Printf("Starting webserver on port %s (try http://localhost:%s/checkout?dishId=...)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
