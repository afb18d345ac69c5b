package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig
	Data         DataConfig
	Model        ModelConfig
	Calendar     CalendarConfig
	Segmentation SegmentationConfig
	Subscription SubscriptionConfig
	Export       ExportConfig
	Logger       LoggerConfig
	Security     SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DataConfig struct {
	TransactionsFile string
	ProductsFile     string
	ShopsFile        string
	CustomersFile    string
	OutputDir        string
	CacheDir         string
	DefaultLatitude  float64
	DefaultLongitude float64
	LoadTimeout      time.Duration
}

type ModelConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesLeaf  int
	Seed            int
	TestFraction    float64
	MinTrainingRows int
	DefaultEstimate float64
	PriceElasticity float64
	TrainTimeout    time.Duration
	TrainOnStartup  bool
}

type CalendarConfig struct {
	HolidayMonths []int
	SummerMonths  []int
}

type SegmentationConfig struct {
	Clusters     int
	MinCustomers int
}

type SubscriptionConfig struct {
	DefaultPlan string
}

type ExportConfig struct {
	SQLite bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			TransactionsFile: getEnvString("DATA_TRANSACTIONS_FILE", "data/transactions.csv"),
			ProductsFile:     getEnvString("DATA_PRODUCTS_FILE", "data/products.csv"),
			ShopsFile:        getEnvString("DATA_SHOPS_FILE", "data/shops.csv"),
			CustomersFile:    getEnvString("DATA_CUSTOMERS_FILE", "data/customers.csv"),
			OutputDir:        getEnvString("DATA_OUTPUT_DIR", "outputs"),
			CacheDir:         getEnvString("DATA_CACHE_DIR", ".cache"),
			DefaultLatitude:  getEnvFloat("DATA_DEFAULT_LATITUDE", 27.7172),
			DefaultLongitude: getEnvFloat("DATA_DEFAULT_LONGITUDE", 85.3240),
			LoadTimeout:      getEnvDuration("DATA_LOAD_TIMEOUT", 2*time.Minute),
		},
		Model: ModelConfig{
			Trees:           getEnvInt("MODEL_TREES", 100),
			MaxDepth:        getEnvInt("MODEL_MAX_DEPTH", 0),
			MinSamplesLeaf:  getEnvInt("MODEL_MIN_SAMPLES_LEAF", 1),
			Seed:            getEnvInt("MODEL_SEED", 42),
			TestFraction:    getEnvFloat("MODEL_TEST_FRACTION", 0.2),
			MinTrainingRows: getEnvInt("MODEL_MIN_TRAINING_ROWS", 10),
			DefaultEstimate: getEnvFloat("MODEL_DEFAULT_ESTIMATE", 10),
			PriceElasticity: getEnvFloat("MODEL_PRICE_ELASTICITY", -0.5),
			TrainTimeout:    getEnvDuration("MODEL_TRAIN_TIMEOUT", 5*time.Minute),
			TrainOnStartup:  getEnvBool("MODEL_TRAIN_ON_STARTUP", true),
		},
		Calendar: CalendarConfig{
			HolidayMonths: getEnvIntSlice("CALENDAR_HOLIDAY_MONTHS", []int{1, 4, 10, 11, 12}),
			SummerMonths:  getEnvIntSlice("CALENDAR_SUMMER_MONTHS", []int{3, 4, 5, 6}),
		},
		Segmentation: SegmentationConfig{
			Clusters:     getEnvInt("SEGMENT_CLUSTERS", 4),
			MinCustomers: getEnvInt("SEGMENT_MIN_CUSTOMERS", 4),
		},
		Subscription: SubscriptionConfig{
			DefaultPlan: getEnvString("SUBSCRIPTION_PLAN", "free"),
		},
		Export: ExportConfig{
			SQLite: getEnvBool("EXPORT_SQLITE", false),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")

	check(c.Data.TransactionsFile != "", "transactions file path cannot be empty")
	check(c.Data.ProductsFile != "", "products file path cannot be empty")
	check(c.Data.ShopsFile != "", "shops file path cannot be empty")
	check(c.Data.CustomersFile != "", "customers file path cannot be empty")

	check(c.Model.Trees > 0, "model trees must be positive")
	check(c.Model.TestFraction > 0 && c.Model.TestFraction < 1, "model test fraction must be between 0 and 1, got %v", c.Model.TestFraction)
	check(c.Model.MinTrainingRows >= 1, "model min training rows must be at least 1")
	for _, m := range slices.Concat(c.Calendar.HolidayMonths, c.Calendar.SummerMonths) {
		check(m >= 1 && m <= 12, "calendar month %d out of range 1-12", m)
	}
	check(c.Segmentation.Clusters >= 1, "segment clusters must be positive")
	check(c.Segmentation.MinCustomers >= 2, "segment min customers must be at least 2")

	check(slices.Contains(validPlans, strings.ToLower(c.Subscription.DefaultPlan)),
		"invalid subscription plan %q, must be one of: %s", c.Subscription.DefaultPlan, strings.Join(validPlans, ", "))
	check(slices.Contains(validLogLevels, c.Logger.Level),
		"invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	check(slices.Contains(validLogFormats, c.Logger.Format),
		"invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))

	check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
	check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")

	return errors.Join(errs...)
}

var (
	validPlans      = []string{"free", "premium"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// getEnv parses key with parse, returning def when the variable is unset or
// does not parse.
func getEnv[T any](key string, def T, parse func(string) (T, error)) T {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	v, err := parse(value)
	if err != nil {
		return def
	}
	return v
}

func getEnvString(key, def string) string {
	return getEnv(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvInt(key string, def int) int {
	return getEnv(key, def, strconv.Atoi)
}

func getEnvFloat(key string, def float64) float64 {
	return getEnv(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvBool(key string, def bool) bool {
	return getEnv(key, def, strconv.ParseBool)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return getEnv(key, def, time.ParseDuration)
}

func getEnvStringSlice(key string, def []string) []string {
	return getEnv(key, def, func(s string) ([]string, error) {
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	})
}

// getEnvIntSlice falls back to def if any element is not an integer.
func getEnvIntSlice(key string, def []int) []int {
	return getEnv(key, def, func(s string) ([]int, error) {
		parts := strings.Split(s, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	})
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
