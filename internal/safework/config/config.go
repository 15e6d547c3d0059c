// Package config loads the service configuration from a YAML file and lets
// environment variables override any key.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when SAFEWORK_CONFIG is not set.
const DefaultPath = "internal/safework/config/config.yaml"

// Config struct for YAML configuration. Every yaml key doubles as the name
// of the environment variable that overrides it.
type Config struct {
	GRPCPort     int    `yaml:"GRPC_PORT"`
	HTTPPort     int    `yaml:"HTTP_PORT"`
	AuthHTTPPort int    `yaml:"AUTH_HTTP_PORT"`
	LogLevel     string `yaml:"LOG_LEVEL"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
	DBPath     string `yaml:"DB_PATH"`

	KafkaBrokers   []string `yaml:"KAFKA_BROKERS"`
	Topic          string   `yaml:"TOPIC"`
	KafkaGroupID   string   `yaml:"KAFKA_GROUP_ID"`
	KafkaQueueSize int      `yaml:"KAFKA_QUEUE_SIZE"`

	JWTSecret  string        `yaml:"JWT_SECRET"`
	JWTIssuer  string        `yaml:"JWT_ISSUER"`
	TokenTTL   time.Duration `yaml:"TOKEN_TTL"`
	BcryptCost int           `yaml:"BCRYPT_COST"`

	RedisURL      string        `yaml:"REDIS_URL"`
	ResetTokenTTL time.Duration `yaml:"RESET_TOKEN_TTL"`

	AdminName     string `yaml:"ADMIN_NAME"`
	AdminEmail    string `yaml:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file, the YAML file at path (or
// SAFEWORK_CONFIG, or DefaultPath) and the environment, then validates the
// result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("SAFEWORK_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(file)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration used for keys absent from the file.
func Defaults() *Config {
	return &Config{
		GRPCPort:       50051,
		HTTPPort:       8080,
		AuthHTTPPort:   8081,
		LogLevel:       "info",
		DBDriver:       "postgres",
		DBPort:         5432,
		DBSSLMode:      "disable",
		Topic:          "safework.events",
		KafkaGroupID:   "safework-audit",
		KafkaQueueSize: 1000,
		JWTIssuer:      "safework",
		TokenTTL:       time.Hour,
		BcryptCost:     10,
		ResetTokenTTL:  15 * time.Minute,
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET must be set")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		problems = append(problems, "RESET_TOKEN_TTL must be positive")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, "DB_DRIVER must be postgres or sqlite")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		problems = append(problems, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// applyEnv overrides every field whose yaml key is set in the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := setField(v.Field(i), raw); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setField(f reflect.Value, raw string) error {
	raw = strings.TrimSpace(raw)
	switch {
	case f.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
	case f.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case f.Kind() == reflect.String:
		f.SetString(raw)
	case f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		f.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}
