package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers      []string
	KafkaRideTopic    string
	KafkaBookingTopic string

	PGDSN string

	OSRMEndpoint    string
	RouteTimeout    time.Duration
	RouteCacheTTL   time.Duration
	GeocodeEndpoint string
	GeocodeAPIKey   string
	GeocodeTimeout  time.Duration

	RefineTopN     int
	CandidateLimit int
	SessionTTL     time.Duration

	StripeAPIKey string
	Currency     string
	PushEndpoint string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:          ":8080",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		RedisGeoKey:       "rides_geo",
		KafkaRideTopic:    "ride-updates",
		KafkaBookingTopic: "booking-events",
		GeocodeEndpoint:   "https://us1.locationiq.com",
		RouteTimeout:      2 * time.Second,
		RouteCacheTTL:     5 * time.Minute,
		GeocodeTimeout:    3 * time.Second,
		RefineTopN:        5,
		CandidateLimit:    50,
		SessionTTL:        15 * time.Minute,
		Currency:          "usd",
		LogLevel:          "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaRideTopic, "KAFKA_RIDE_TOPIC")
	setStringFromEnv(&cfg.KafkaBookingTopic, "KAFKA_BOOKING_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setDurationFromEnv(&cfg.RouteTimeout, "ROUTE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)
	setStringFromEnv(&cfg.GeocodeEndpoint, "GEOCODE_ENDPOINT")
	cfg.GeocodeAPIKey = os.Getenv("GEOCODE_API_KEY")
	setDurationFromEnv(&cfg.GeocodeTimeout, "GEOCODE_TIMEOUT", &errs)

	setIntFromEnv(&cfg.RefineTopN, "SEARCH_REFINE_TOP_N", &errs)
	setIntFromEnv(&cfg.CandidateLimit, "SEARCH_CANDIDATE_LIMIT", &errs)
	setDurationFromEnv(&cfg.SessionTTL, "SEARCH_SESSION_TTL", &errs)

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")
	setStringFromEnv(&cfg.Currency, "CURRENCY")
	setStringFromEnv(&cfg.PushEndpoint, "PUSH_ENDPOINT")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.RefineTopN <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_REFINE_TOP_N must be > 0"))
	}
	if cfg.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_CANDIDATE_LIMIT must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
