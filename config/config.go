// Package config provides configuration management for the sispay service.
// Configuration can be loaded from YAML files and overridden by environment variables.
package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Gateway endpoints are fixed per environment; only the environment flag
// is configurable.
const (
	formURLProduction = "https://sis.redsys.es/sis/realizarPago/"
	formURLTest       = "https://sis-t.redsys.es:25443/sis/realizarPago/"
	restURLProduction = "https://sis.redsys.es/sis/rest/trataPeticionREST"
	restURLTest       = "https://sis-t.redsys.es:25443/sis/rest/trataPeticionREST"
)

// Merchant holds the per-gateway-account configuration. Read-only after load.
type Merchant struct {
	// Secret is the Base64-encoded 24-byte 3DES key material.
	Secret string `yaml:"secret" env:"MERCHANT_SECRET" env-default:"" validate:"required,base64"`
	// Code is the merchant code assigned by the acquirer.
	Code string `yaml:"code" env:"MERCHANT_CODE" env-default:"" validate:"required"`
	// Name is the merchant display name shown on the payment page.
	Name string `yaml:"name" env:"MERCHANT_NAME" env-default:""`
	// Description is the fallback product description.
	Description string `yaml:"description" env:"MERCHANT_DESCRIPTION" env-default:""`
	Terminal    string `yaml:"terminal" env:"MERCHANT_TERMINAL" env-default:"1"`
	Currency    string `yaml:"currency" env:"MERCHANT_CURRENCY" env-default:"978"`
	// TransactionType: "0" authorization, "3" refund.
	TransactionType string `yaml:"transaction_type" env:"MERCHANT_TRANSACTION_TYPE" env-default:"0"`
	// ConsumerLanguage: gateway language code, "001" = Spanish.
	ConsumerLanguage string `yaml:"consumer_language" env:"MERCHANT_CONSUMER_LANGUAGE" env-default:"001"`
	// PayMethod: "T" card, "R" transfer, "D" direct debit.
	PayMethod        string `yaml:"pay_method" env:"MERCHANT_PAY_METHOD" env-default:"T"`
	MerchantData     string `yaml:"merchant_data" env:"MERCHANT_DATA" env-default:""`
	SignatureVersion string `yaml:"signature_version" env:"MERCHANT_SIGNATURE_VERSION" env-default:"HMAC_SHA256_V1"`
	// PercentPartial collects only this fraction of the order total up
	// front; the remainder is settled out-of-band.
	PercentPartial float64 `yaml:"percent_partial" env:"MERCHANT_PERCENT_PARTIAL" env-default:"0" validate:"gte=0,lte=100"`
	// Environment selects between the fixed test and production endpoints.
	Environment string `yaml:"environment" env:"MERCHANT_ENVIRONMENT" env-default:"test" validate:"oneof=test production"`
	// BaseURL is the merchant site base used to build return URLs.
	BaseURL string `yaml:"base_url" env:"MERCHANT_BASE_URL" env-default:"" validate:"required,url"`
	// CallbackURL overrides BaseURL for the gateway notification URL only.
	CallbackURL string `yaml:"callback_url" env:"MERCHANT_CALLBACK_URL" env-default:""`
	// RequestTimeout bounds the synchronous REST charge, in seconds.
	RequestTimeout int `yaml:"request_timeout" env:"MERCHANT_REQUEST_TIMEOUT" env-default:"30" validate:"gt=0"`
}

// FormActionURL returns the hosted-form endpoint for the configured environment.
func (m *Merchant) FormActionURL() string {
	if m.Environment == "production" {
		return formURLProduction
	}
	return formURLTest
}

// RestURL returns the server-to-server endpoint for the configured environment.
func (m *Merchant) RestURL() string {
	if m.Environment == "production" {
		return restURLProduction
	}
	return restURLTest
}

// Config holds all configuration for the sispay service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug bool `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	// TestMode downgrades callback hard failures to soft flags so synthetic
	// callbacks can exercise the pipeline. Never enable in production.
	TestMode       bool  `yaml:"test_mode" env:"TEST_MODE" env-default:"false"`
	DisablePayment bool  `yaml:"disable_payment" env:"DISABLE_PAYMENT" env-default:"false"`
	LogRecords     int64 `yaml:"log_records" env:"LOG_RECORDS" env-default:"0"`
	Listen         struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
	Orders struct {
		// WebhookURL is the order-system base URL for state hooks and
		// description lookups. Empty disables the hooks.
		WebhookURL string `yaml:"webhook_url" env:"ORDERS_WEBHOOK_URL" env-default:""`
	} `yaml:"orders"`
	Merchant Merchant `yaml:"merchant"`
}

var instance *Config
var instanceErr error
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once;
// the result, including a load failure, is cached for every later caller.
func GetConfig(path string) (*Config, error) {
	once.Do(func() {
		instance = &Config{}
		if err := cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			instanceErr = fmt.Errorf("load config: %w; %s", err, desc)
			instance = nil
			return
		}
		if err := instance.Validate(); err != nil {
			instanceErr = err
			instance = nil
		}
	})
	return instance, instanceErr
}

// Validate checks the merchant section against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(&c.Merchant); err != nil {
		return fmt.Errorf("merchant config: %w", err)
	}
	return nil
}
