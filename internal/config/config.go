package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"` // mysql, postgres, sqlite
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	DBSSLMode              string `env:"DB_SSLMODE" envDefault:"disable"`
	DBPath                 string `env:"DB_PATH" envDefault:"marketplace.db"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	AuthMode          string `env:"AUTH_MODE" envDefault:"firebase"` // firebase, jwt
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTIssuer         string `env:"JWT_ISSUER" envDefault:"marketplace"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"10m"`

	EventsDriver string `env:"EVENTS_DRIVER" envDefault:"none"` // none, memory, redis, nats
	NATSURL      string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	CORSAllowedSuffixes []string `env:"CORS_ALLOWED_SUFFIXES" envSeparator:"," envDefault:"vercel.app"`

	GitSHA    string `env:"GIT_SHA" envDefault:"dev"`
	BuildTime string `env:"BUILD_TIME"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that depend on the selected drivers.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DBDriver) {
	case "mysql", "postgres":
		for name, v := range map[string]string{"DB_USER": c.DBUser, "DB_PASSWORD": c.DBPassword, "DB_NAME": c.DBName} {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s is required for DB_DRIVER=%s", name, c.DBDriver))
			}
		}
		if c.DBHost == "" && c.InstanceConnectionName == "" {
			errs = append(errs, fmt.Errorf("DB_HOST or INSTANCE_CONNECTION_NAME is required for DB_DRIVER=%s", c.DBDriver))
		}
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for DB_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}

	switch strings.ToLower(c.AuthMode) {
	case "firebase":
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for AUTH_MODE=firebase"))
		}
	case "jwt":
		if len(c.JWTSecret) < 16 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes for AUTH_MODE=jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode))
	}

	switch strings.ToLower(c.EventsDriver) {
	case "none", "", "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for EVENTS_DRIVER=redis"))
		}
	case "nats":
		if c.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required for EVENTS_DRIVER=nats"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENTS_DRIVER %q", c.EventsDriver))
	}
	return errors.Join(errs...)
}
