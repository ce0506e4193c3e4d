package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	ClientURL string `env:"CLIENT_URL, default=http://localhost:5173"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	DirectoryBackend string `env:"DIRECTORY_BACKEND, default=mongo"`

	Auth   AuthConfig
	Cookie CookieConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET, required"`
	TokenTTL       time.Duration `env:"TOKEN_TTL, default=1h"`
	TokenIssuer    string        `env:"TOKEN_ISSUER, default=identity-service"`
	BcryptCost     int           `env:"BCRYPT_COST, default=10"`
	HashWorkers    int           `env:"HASH_WORKERS, default=0"`
	RevokeOnLogout bool          `env:"REVOKE_ON_LOGOUT, default=false"`
}

type CookieConfig struct {
	Name   string `env:"COOKIE_NAME, default=token"`
	Domain string `env:"COOKIE_DOMAIN"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

// RedisConfig is optional; an empty Addr disables Redis.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// IsProduction reports whether cross-site cookie attributes apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// minSecretLen matches the HS256 output size.
const minSecretLen = 32

func (c *Config) validate() error {
	switch c.DirectoryBackend {
	case BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be %q or %q, got %q", BackendMongo, BackendMemory, c.DirectoryBackend)
	}
	if len(c.Auth.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// Load reads an optional .env file and then the process environment. It panics
// on invalid configuration.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes configuration from the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
