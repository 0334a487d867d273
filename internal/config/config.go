package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/andariego/andariego/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// BillingConfig is the configuration surface of the anchor engine. The
// algorithm itself never reads the environment; everything it needs comes
// through here.
type BillingConfig struct {
	// DefaultTimezone is used for subscriptions that carry no timezone of
	// their own, and for rendering the run-level requested anchor date key.
	DefaultTimezone string `mapstructure:"default_timezone" validate:"required"`
	// DefaultAnchorDay is the day-of-month used when onboarding does not set one.
	DefaultAnchorDay int `mapstructure:"default_anchor_day" validate:"required,min=1,max=31"`
	// DirectDebitDiscountPct is the default subscription discount granted for
	// direct debit collection, in percent.
	DirectDebitDiscountPct float64 `mapstructure:"direct_debit_discount_pct" validate:"min=0,max=100"`
	// DunningRetryDays are day offsets from the due date for collection
	// attempts. 0 is always implied; the list is deduplicated and sorted
	// before use.
	DunningRetryDays []int `mapstructure:"dunning_retry_days"`
	// DunningBusinessDays switches attempt scheduling from calendar days to
	// business days of the engine's home region.
	DunningBusinessDays bool `mapstructure:"dunning_business_days"`
	// TxMaxWait bounds how long a per-subscription transaction may wait on
	// row and advisory locks.
	TxMaxWait time.Duration `mapstructure:"tx_max_wait"`
	// TxTimeout bounds the total execution time of a per-subscription
	// transaction.
	TxTimeout time.Duration `mapstructure:"tx_timeout"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/andariego")

	v.SetEnvPrefix("ANDARIEGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("billing.default_timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("billing.default_anchor_day", 1)
	v.SetDefault("billing.direct_debit_discount_pct", 0)
	v.SetDefault("billing.dunning_retry_days", []int{0, 3, 7})
	v.SetDefault("billing.dunning_business_days", false)
	v.SetDefault("billing.tx_max_wait", "10s")
	v.SetDefault("billing.tx_timeout", "45s")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Billing.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid billing.default_timezone %q: %w", c.Billing.DefaultTimezone, err)
	}
	return nil
}

// DefaultLocation loads the engine's default timezone. The timezone is
// validated at config load, so failure here is a programmer error.
func (b BillingConfig) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(b.DefaultTimezone)
	if err != nil {
		panic(fmt.Sprintf("config: invalid default timezone %q", b.DefaultTimezone))
	}
	return loc
}

// GetDefaultConfig returns a default configuration for local development
// and tests. This is useful for running scripts or other non-web applications.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Billing: BillingConfig{
			DefaultTimezone:     "America/Argentina/Buenos_Aires",
			DefaultAnchorDay:    1,
			DunningRetryDays:    []int{0, 3, 7},
			DunningBusinessDays: false,
			TxMaxWait:           10 * time.Second,
			TxTimeout:           45 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
