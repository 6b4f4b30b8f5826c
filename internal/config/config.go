package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt builds configuration error messages
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time converts TTL settings into durations
)

// Storage drivers accepted by DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	LogLevel       string // zap level: debug, info, warn, error
	DBDriver       string // "mysql" or "memory"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	AutoMigrate    bool   // apply the embedded schema at startup
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	AMQPURL        string // broker URL; empty disables event publishing
	EventsConsumer bool   // run the activity-log consumer in-process
}

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// Load reads configuration from the process environment.  Missing or
// malformed required variables cause the program to exit with a fatal log
// message.
func Load() Config {
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from lookup.  Database credentials are only required
// for the mysql driver.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Env:            e.str("APP_ENV", "dev"),
		Port:           e.str("APP_PORT", "8080"),
		LogLevel:       e.str("LOG_LEVEL", "info"),
		DBDriver:       e.str("DB_DRIVER", DriverMySQL),
		DBPass:         e.str("DB_PASS", ""),
		AutoMigrate:    e.boolean("DB_AUTO_MIGRATE", false),
		JWTSecret:      e.must("JWT_SECRET"),
		AccessTTLMin:   e.integer("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: e.integer("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     e.integer("BCRYPT_COST", 12),
		AMQPURL:        e.str("RABBITMQ_URL", e.str("AMQP_URL", "")),
		EventsConsumer: e.boolean("EVENTS_CONSUMER", false),
	}
	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = e.must("DB_USER")
		cfg.DBHost = e.must("DB_HOST")
		cfg.DBPort = e.str("DB_PORT", "3306")
		cfg.DBName = e.must("DB_NAME")
	case DriverMemory:
	default:
		e.fail(fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}
	if cfg.AccessTTLMin <= 0 {
		e.fail(fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if cfg.RefreshTTLDays <= 0 {
		e.fail(fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env wraps a lookup function and remembers the first error.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// must retrieves the value of a required variable.
func (e *env) must(key string) string {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		e.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

// integer is like str() but converts the value, recording malformed input.
func (e *env) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid bool for %s: %q", key, v))
		return def
	}
	return b
}
