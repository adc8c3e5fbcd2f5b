package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/pkg/db"
)

// defaultMinChargeMinor is the processor's 10 THB card minimum.
const defaultMinChargeMinor = 1000

type Config struct {
	Port string

	DB db.PostgresConfig

	RedisAddr     string // empty selects the in-memory catalog cache
	RedisPassword string
	CatalogTTL    time.Duration

	TaxRate        float64
	Channel        models.ChannelID
	Currency       string
	MinChargeMinor int64 // smallest card charge in minor units

	StripeSecretKey string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	dbCfg, err := db.LoadPostgresConfig(getenv)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:            withDefault(getenv("PORT"), "8080"),
		DB:              dbCfg,
		RedisAddr:       getenv("REDIS_ADDR"),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		Currency:        withDefault(getenv("CURRENCY"), "thb"),
		StripeSecretKey: getenv("STRIPE_SECRET_KEY"),
	}

	cfg.CatalogTTL, err = time.ParseDuration(withDefault(getenv("CATALOG_TTL"), "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("CATALOG_TTL: %w", err)
	}

	cfg.TaxRate = pricing.DefaultTaxRate
	if v := getenv("TAX_RATE"); v != "" {
		cfg.TaxRate, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.TaxRate < 0 {
			return Config{}, fmt.Errorf("TAX_RATE: invalid value %q", v)
		}
	}

	cfg.Channel = models.ChannelFoodService
	if v := getenv("PROMOTION_CHANNEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !models.ChannelID(n).Valid() {
			return Config{}, fmt.Errorf("PROMOTION_CHANNEL: invalid value %q", v)
		}
		cfg.Channel = models.ChannelID(n)
	}

	cfg.MinChargeMinor = defaultMinChargeMinor
	if v := getenv("MIN_CHARGE_MINOR"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("MIN_CHARGE_MINOR: invalid value %q", v)
		}
		cfg.MinChargeMinor = n
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
