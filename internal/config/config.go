package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	InventoryBaseURL string
	InventoryTimeout time.Duration

	PaymentCallbackToken string

	CartExpirationDays  int
	CartMaxItems        int
	CartRetentionDays   int
	CartValidateStrict  bool
	CartCleanupInterval time.Duration

	OrderAutoCancelAge        time.Duration
	OrderAutoCancelCheckEvery time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		InventoryBaseURL: os.Getenv("INVENTORY_BASE_URL"),
		InventoryTimeout: getDuration("INVENTORY_TIMEOUT", 15*time.Second),

		PaymentCallbackToken: os.Getenv("PAYMENT_CALLBACK_TOKEN"),

		CartExpirationDays:  getInt("CART_EXPIRATION_DAYS", 7),
		CartMaxItems:        getInt("CART_MAX_ITEMS", 50),
		CartRetentionDays:   getInt("CART_RETENTION_DAYS", 30),
		CartValidateStrict:  getBool("CART_VALIDATE_STRICT", false),
		CartCleanupInterval: getDuration("CART_CLEANUP_INTERVAL", time.Hour),

		OrderAutoCancelAge:        getDuration("ORDER_AUTO_CANCEL_AGE", 24*time.Hour),
		OrderAutoCancelCheckEvery: getDuration("ORDER_AUTO_CANCEL_CHECK_EVERY", 15*time.Minute),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default %v", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default %s", key, v, def)
		return def
	}
	return d
}
