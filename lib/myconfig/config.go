// Package myconfig loads the service configuration from an optional yaml file, overridden by environment variables.
package myconfig

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

const (
	DelayedProviderKlarna = "klarna"
	DelayedProviderMollie = "mollie"
)

type Config struct {
	Port    string `yaml:"port" env:"PORT" env-default:"8888"`
	BaseURL string `yaml:"base_url" env:"BASE_URL" env-default:"" env-description:"public url, used for links when the request host cannot be trusted"`

	Stripe struct {
		APIKey        string `yaml:"api_key" env:"STRIPE_API_KEY" env-default:""`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:"" env-description:"signature verification is skipped when empty"`
	} `yaml:"stripe"`

	DelayedProvider string `yaml:"delayed_provider" env:"DELAYED_PROVIDER" env-default:"klarna" env-description:"klarna or mollie"`

	Klarna struct {
		BaseURL  string `yaml:"base_url" env:"KLARNA_BASE_URL" env-default:"https://api.playground.klarna.com"`
		Username string `yaml:"username" env:"KLARNA_USERNAME" env-default:""`
		Password string `yaml:"password" env:"KLARNA_PASSWORD" env-default:""`
	} `yaml:"klarna"`

	Mollie struct {
		APIKey string `yaml:"api_key" env:"MOLLIE_API_KEY" env-default:""`
	} `yaml:"mollie"`

	Swish struct {
		BaseURL    string `yaml:"base_url" env:"SWISH_BASE_URL" env-default:"https://mss.cpc.getswish.net/swish-cpcapi"`
		PayeeAlias string `yaml:"payee_alias" env:"SWISH_PAYEE_ALIAS" env-default:"1234679304"`
		CertFile   string `yaml:"cert_file" env:"SWISH_CERT_FILE" env-default:""`
		KeyFile    string `yaml:"key_file" env:"SWISH_KEY_FILE" env-default:""`
		CAFile     string `yaml:"ca_file" env:"SWISH_CA_FILE" env-default:""`
	} `yaml:"swish"`

	Pricing struct {
		ServiceFeeRate     string `yaml:"service_fee_rate" env:"SERVICE_FEE_RATE" env-default:"0.06"`
		TaxRateBasisPoints int64  `yaml:"tax_rate_basis_points" env:"TAX_RATE_BASIS_POINTS" env-default:"2000"`
		PlatformFeeRate    string `yaml:"platform_fee_rate" env:"PLATFORM_FEE_RATE" env-default:"0.20"`
	} `yaml:"pricing"`
}

// Load reads the yaml file at path when given; environment variables always take precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("error loading config: %w; %s", err, desc)
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.DelayedProvider != DelayedProviderKlarna && c.DelayedProvider != DelayedProviderMollie {
		return fmt.Errorf("unsupported delayed provider '%s'", c.DelayedProvider)
	}
	_, err := c.ServiceFeeRate()
	if err != nil {
		return err
	}
	_, err = c.PlatformFeeRate()
	if err != nil {
		return err
	}
	if c.Pricing.TaxRateBasisPoints < 0 || c.Pricing.TaxRateBasisPoints > 10000 {
		return fmt.Errorf("tax rate of %d basis points out of range", c.Pricing.TaxRateBasisPoints)
	}
	return nil
}

func (c Config) ServiceFeeRate() (decimal.Decimal, error) {
	return parseRate("service fee", c.Pricing.ServiceFeeRate)
}

func (c Config) PlatformFeeRate() (decimal.Decimal, error) {
	return parseRate("platform fee", c.Pricing.PlatformFeeRate)
}

func parseRate(name string, value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s rate '%s': %s", name, value, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s rate %s out of range", name, rate)
	}
	return rate, nil
}
