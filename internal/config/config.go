package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable (e.g. "30s") or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetDecimalEnv returns a decimal environment variable or a default value.
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetListEnv returns a comma separated environment variable or a default value.
func GetListEnv(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defaultVal
	}

	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DBConfig holds the postgres connection and pool settings.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the key/value connection string understood by the pgx driver.
func (c DBConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ReconciliationConfig controls the wallet consistency sweep.
type ReconciliationConfig struct {
	Schedule     string
	RunOnStartup bool
	Tolerance    decimal.Decimal
	LockTTL      time.Duration
	Timeout      time.Duration
}

// LedgerConfig aggregates everything the ledger process needs.
type LedgerConfig struct {
	Env            string
	Port           string
	OpsToken       string
	DB             DBConfig
	Redis          RedisConfig
	WalletCacheTTL time.Duration
	OfficerRoles   []string
	Reconciliation ReconciliationConfig
}

// IsProduction checks if the app runs in production mode.
func (c LedgerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Default officer roles that may create transactions without approval.
var DefaultOfficerRoles = []string{"PRESIDENT", "VICE_PRESIDENT", "TREASURER"}

// Load builds a LedgerConfig from the environment.
func Load() LedgerConfig {
	return LedgerConfig{
		Env:      GetEnv("ENV", "development"),
		Port:     GetEnv("PORT", "3000"),
		OpsToken: GetEnv("OPS_TOKEN", ""),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "clubledger"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		WalletCacheTTL: GetDurationEnv("WALLET_CACHE_TTL", 5*time.Minute),
		OfficerRoles:   GetListEnv("OFFICER_ROLES", DefaultOfficerRoles),
		Reconciliation: ReconciliationConfig{
			Schedule:     GetEnv("RECONCILE_SCHEDULE", "0 3 * * *"),
			RunOnStartup: GetBoolEnv("RECONCILE_ON_STARTUP", true),
			Tolerance:    GetDecimalEnv("RECONCILE_TOLERANCE", decimal.RequireFromString("0.01")),
			LockTTL:      GetDurationEnv("RECONCILE_LOCK_TTL", 10*time.Minute),
			Timeout:      GetDurationEnv("RECONCILE_TIMEOUT", 5*time.Minute),
		},
	}
}
