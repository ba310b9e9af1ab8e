package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoiceConfig carries the invoicing knobs that may change without a restart.
type InvoiceConfig struct {
	GSTRate             float64 `mapstructure:"gst_rate"`
	DefaultHSNCode      string  `mapstructure:"default_hsn_code"`
	DefaultCustomerName string  `mapstructure:"default_customer_name"`
	DefaultTerms        string  `mapstructure:"default_terms"`
	DueDays             int     `mapstructure:"due_days"`
	MaxNumberProbes     int     `mapstructure:"max_number_probes"`
	MaxInsertAttempts   int     `mapstructure:"max_insert_attempts"`
}

func DefaultInvoiceConfig() InvoiceConfig {
	return InvoiceConfig{
		GSTRate:             5,
		DefaultHSNCode:      "996331",
		DefaultCustomerName: "Walk-in Customer",
		DefaultTerms:        "Thank you for your business! Please visit again.",
		DueDays:             0,
		MaxNumberProbes:     100,
		MaxInsertAttempts:   5,
	}
}

type InvoiceConfigHolder struct {
	current atomic.Value // holds InvoiceConfig
}

// NewStaticInvoiceConfigHolder returns a holder that never reloads.
func NewStaticInvoiceConfigHolder(cfg InvoiceConfig) *InvoiceConfigHolder {
	holder := &InvoiceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoiceConfigHolder(cfg Config, log *zap.Logger) (*InvoiceConfigHolder, error) {
	log = log.Named("config.invoice")
	v := viper.New()

	v.SetConfigName("invoice")
	v.SetConfigType("yml")
	if cfg.InvoiceConfigPath != "" {
		v.AddConfigPath(cfg.InvoiceConfigPath)
	}
	v.AddConfigPath("/etc/restobill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESTOBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoiceConfig()
	v.SetDefault("invoice.gst_rate", defaults.GSTRate)
	v.SetDefault("invoice.default_hsn_code", defaults.DefaultHSNCode)
	v.SetDefault("invoice.default_customer_name", defaults.DefaultCustomerName)
	v.SetDefault("invoice.default_terms", defaults.DefaultTerms)
	v.SetDefault("invoice.due_days", defaults.DueDays)
	v.SetDefault("invoice.max_number_probes", defaults.MaxNumberProbes)
	v.SetDefault("invoice.max_insert_attempts", defaults.MaxInsertAttempts)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	current, err := unmarshalInvoiceConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateInvoiceConfig(current); err != nil {
		return nil, err
	}

	holder := NewStaticInvoiceConfigHolder(current)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalInvoiceConfig(v)
		if err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateInvoiceConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name), zap.Float64("gst_rate", updated.GSTRate))
	})

	return holder, nil
}

// unmarshalInvoiceConfig decodes the full settings tree so defaults fill keys
// missing from a partial file.
func unmarshalInvoiceConfig(v *viper.Viper) (InvoiceConfig, error) {
	var file struct {
		Invoice InvoiceConfig `mapstructure:"invoice"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return InvoiceConfig{}, err
	}
	return file.Invoice, nil
}

func (h *InvoiceConfigHolder) Get() InvoiceConfig {
	return h.current.Load().(InvoiceConfig)
}

func validateInvoiceConfig(cfg InvoiceConfig) error {
	if cfg.GSTRate < 0 || cfg.GSTRate > 100 {
		return errors.New("invoice.gst_rate must be between 0 and 100")
	}
	if strings.TrimSpace(cfg.DefaultHSNCode) == "" {
		return errors.New("invoice.default_hsn_code cannot be empty")
	}
	if cfg.DueDays < 0 {
		return errors.New("invoice.due_days cannot be negative")
	}
	if cfg.MaxNumberProbes < 1 {
		return errors.New("invoice.max_number_probes must be positive")
	}
	if cfg.MaxInsertAttempts < 1 {
		return errors.New("invoice.max_insert_attempts must be positive")
	}
	return nil
}
