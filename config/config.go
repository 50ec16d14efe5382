/*
config.go - Runtime configuration from the environment

PURPOSE:
  Reads the service settings from RENTAL_* environment variables. A .env
  file in the working directory is loaded first by the command, so local
  setups can keep their settings there. Command-line flags override what
  is read here.

VARIABLES:
  RENTAL_PORT               HTTP port (default: 8080)
  RENTAL_DB                 SQLite path, ":memory:" allowed (default: rental.db)
  RENTAL_CORS_ORIGINS       Comma-separated allowed origins
  RENTAL_LEASE_INTERVAL     Lease release check interval (default: 1h)
  RENTAL_SCHEDULER_ENABLED  Run the lease scheduler (default: true)
  RENTAL_BILLING_AS_OF      Pin "today" for billing, YYYY-MM-DD (default: live clock)
  RENTAL_ADMIN_ENABLED      Expose /api/admin seeding endpoints (default: false)

SEE ALSO:
  - cmd/rental/main.go: Flag overrides
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/rental-engine/billing"
)

// Environment variable names.
const (
	EnvPort             = "RENTAL_PORT"
	EnvDB               = "RENTAL_DB"
	EnvCORSOrigins      = "RENTAL_CORS_ORIGINS"
	EnvLeaseInterval    = "RENTAL_LEASE_INTERVAL"
	EnvSchedulerEnabled = "RENTAL_SCHEDULER_ENABLED"
	EnvBillingAsOf      = "RENTAL_BILLING_AS_OF"
	EnvAdminEnabled     = "RENTAL_ADMIN_ENABLED"
)

// Config holds the service settings.
type Config struct {
	Port             int
	DBPath           string
	CORSOrigins      []string
	LeaseInterval    time.Duration
	SchedulerEnabled bool
	// BillingAsOf pins the billing reference date. Zero means the live clock.
	BillingAsOf billing.Date
	// AdminEnabled exposes the endpoints that reset and seed the database.
	AdminEnabled bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:             8080,
		DBPath:           "rental.db",
		LeaseInterval:    time.Hour,
		SchedulerEnabled: true,
	}
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup. Unset variables keep
// their default; set but malformed ones are an error.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Port = port
	}
	if v, ok := get(EnvDB); ok {
		cfg.DBPath = v
	}
	if v, ok := get(EnvCORSOrigins); ok {
		cfg.CORSOrigins = SplitList(v)
	}
	if v, ok := get(EnvLeaseInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", EnvLeaseInterval, v)
		}
		cfg.LeaseInterval = d
	}
	if v, ok := get(EnvSchedulerEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: invalid boolean %q", EnvSchedulerEnabled, v)
		}
		cfg.SchedulerEnabled = enabled
	}
	if v, ok := get(EnvAdminEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: invalid boolean %q", EnvAdminEnabled, v)
		}
		cfg.AdminEnabled = enabled
	}
	if v, ok := get(EnvBillingAsOf); ok {
		d, err := billing.ParseDate(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvBillingAsOf, err)
		}
		cfg.BillingAsOf = d
	}
	return cfg, nil
}

// Calculator returns the billing calculator for this configuration.
func (c Config) Calculator() *billing.Calculator {
	if c.BillingAsOf.IsZero() {
		return billing.NewCalculator()
	}
	return &billing.Calculator{Now: billing.FixedClock(c.BillingAsOf)}
}

// Now returns the clock matching Calculator, for code that stamps records.
func (c Config) Now() time.Time {
	if c.BillingAsOf.IsZero() {
		return time.Now()
	}
	return c.BillingAsOf.Time()
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
