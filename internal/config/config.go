package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort     string
	ServiceName string

	DBDriver      string
	DatabaseDSN   string
	DBAutoMigrate bool

	JWTSecret string

	RabbitMQURL string

	RedisAddr        string
	DeliveryQuoteTTL time.Duration

	JaegerEndpoint string

	Orders   OrderConfig
	Delivery DeliveryConfig
}

// OrderConfig tunes the order placement path.
type OrderConfig struct {
	FlatDeliveryFee decimal.Decimal
	// ClampDiscount caps any voucher discount at the order subtotal.
	ClampDiscount bool
}

// DeliveryConfig is the distance based fee schedule used by the pre-checkout estimate.
type DeliveryConfig struct {
	BaseFee          decimal.Decimal
	BaseDistanceKm   float64
	PerKmFee         decimal.Decimal
	MissingCoordsFee decimal.Decimal
}

// Load reads an optional .env file, then environment variables, falling back to defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("SERVICE_NAME", "marketplace-orders")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:marketplace.db?_busy_timeout=5000")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("DELIVERY_QUOTE_TTL", 5*time.Minute)
	v.SetDefault("JAEGER_ENDPOINT", "")
	v.SetDefault("ORDER_FLAT_DELIVERY_FEE", "50.00")
	v.SetDefault("ORDER_CLAMP_DISCOUNT", true)
	v.SetDefault("DELIVERY_BASE_FEE", "30")
	v.SetDefault("DELIVERY_BASE_DISTANCE_KM", 5.0)
	v.SetDefault("DELIVERY_PER_KM_FEE", "5")
	v.SetDefault("DELIVERY_DEFAULT_FEE", "50.00")
}

func fromViper(v *viper.Viper) (*Config, error) {
	flatFee, err := decimalKey(v, "ORDER_FLAT_DELIVERY_FEE")
	if err != nil {
		return nil, err
	}
	baseFee, err := decimalKey(v, "DELIVERY_BASE_FEE")
	if err != nil {
		return nil, err
	}
	perKm, err := decimalKey(v, "DELIVERY_PER_KM_FEE")
	if err != nil {
		return nil, err
	}
	defaultFee, err := decimalKey(v, "DELIVERY_DEFAULT_FEE")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:          v.GetString("APP_PORT"),
		ServiceName:      v.GetString("SERVICE_NAME"),
		DBDriver:         v.GetString("DB_DRIVER"),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		DBAutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		DeliveryQuoteTTL: v.GetDuration("DELIVERY_QUOTE_TTL"),
		JaegerEndpoint:   v.GetString("JAEGER_ENDPOINT"),
		Orders: OrderConfig{
			FlatDeliveryFee: flatFee,
			ClampDiscount:   v.GetBool("ORDER_CLAMP_DISCOUNT"),
		},
		Delivery: DeliveryConfig{
			BaseFee:          baseFee,
			BaseDistanceKm:   v.GetFloat64("DELIVERY_BASE_DISTANCE_KM"),
			PerKmFee:         perKm,
			MissingCoordsFee: defaultFee,
		},
	}
	return cfg, nil
}

func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
