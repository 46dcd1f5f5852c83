package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig carries operator-tunable billing defaults. It is loaded from
// billing.yml and hot-reloaded on change, so numbering templates can be
// adjusted without a restart.
type BillingConfig struct {
	Numbering NumberingDefaults `mapstructure:"numbering"`
	Payment   PaymentDefaults   `mapstructure:"payment"`
}

// NumberingDefaults seeds a numbering system when an account has none
// configured for a document type.
type NumberingDefaults struct {
	InvoiceTemplate    string `mapstructure:"invoiceTemplate"`
	CreditNoteTemplate string `mapstructure:"creditNoteTemplate"`
	QuoteTemplate      string `mapstructure:"quoteTemplate"`
	ResetInterval      string `mapstructure:"resetInterval"`
}

// PaymentDefaults controls how finalize treats the payment collaborator.
type PaymentDefaults struct {
	CheckoutEnabled bool `mapstructure:"checkoutEnabled"`
	NumberRetries   int  `mapstructure:"numberRetries"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Numbering: NumberingDefaults{
			InvoiceTemplate:    "INV-{yyyy}-{nnnn}",
			CreditNoteTemplate: "CN-{yyyy}-{nnnn}",
			QuoteTemplate:      "Q-{yyyy}-{nnnn}",
			ResetInterval:      "yearly",
		},
		Payment: PaymentDefaults{
			CheckoutEnabled: true,
			NumberRetries:   3,
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/billora/config")
	v.AddConfigPath("/etc/billora")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.numbering", defaults.Numbering)
		v.SetDefault("billing.payment", defaults.Payment)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	applyBillingDefaults(&cfg)
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		applyBillingDefaults(&updated)
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config without file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	applyBillingDefaults(&cfg)
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func applyBillingDefaults(cfg *BillingConfig) {
	defaults := DefaultBillingConfig()
	if cfg.Numbering.InvoiceTemplate == "" {
		cfg.Numbering.InvoiceTemplate = defaults.Numbering.InvoiceTemplate
	}
	if cfg.Numbering.CreditNoteTemplate == "" {
		cfg.Numbering.CreditNoteTemplate = defaults.Numbering.CreditNoteTemplate
	}
	if cfg.Numbering.QuoteTemplate == "" {
		cfg.Numbering.QuoteTemplate = defaults.Numbering.QuoteTemplate
	}
	if cfg.Numbering.ResetInterval == "" {
		cfg.Numbering.ResetInterval = defaults.Numbering.ResetInterval
	}
	if cfg.Payment.NumberRetries <= 0 {
		cfg.Payment.NumberRetries = defaults.Payment.NumberRetries
	}
}

func validateBillingConfig(cfg BillingConfig) error {
	switch cfg.Numbering.ResetInterval {
	case "never", "weekly", "monthly", "quarterly", "yearly":
	default:
		return errors.New("billing.numbering.resetInterval must be one of never, weekly, monthly, quarterly, yearly")
	}
	if cfg.Numbering.InvoiceTemplate == "" {
		return errors.New("billing.numbering.invoiceTemplate cannot be empty")
	}
	return nil
}
