package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. Values come from the YAML
// file first; environment variables such as DB_HOST or JWT_SECRET override them.
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Database    DatabaseConfig    `yaml:"database" envconfig:"DB"`
	JWT         JWTConfig         `yaml:"jwt" envconfig:"JWT"`
	Log         LogConfig         `yaml:"log" envconfig:"LOG"`
	CORS        CORSConfig        `yaml:"cors" envconfig:"CORS"`
	Wallet      WalletConfig      `yaml:"wallet" envconfig:"WALLET"`
	Assignment  AssignmentConfig  `yaml:"assignment" envconfig:"ASSIGNMENT"`
	Negotiation NegotiationConfig `yaml:"negotiation" envconfig:"NEGOTIATION"`
	MQ          MQConfig          `yaml:"mq" envconfig:"MQ"`
	Scheduler   SchedulerConfig   `yaml:"scheduler" envconfig:"SCHEDULER"`
}

// ServerConfig contains HTTP and gRPC health listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port" split_words:"true"`
	// InMemory runs against the in-process store instead of PostgreSQL.
	InMemory bool `yaml:"in_memory" split_words:"true"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	Migrate  bool   `yaml:"migrate"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes" split_words:"true"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
}

type WalletConfig struct {
	Currency string `yaml:"currency"`
}

type AssignmentConfig struct {
	MinRating float64 `yaml:"min_rating" split_words:"true"`
	// MaxDistanceKm drops candidates farther than this from the work; 0 disables it.
	MaxDistanceKm float64 `yaml:"max_distance_km" split_words:"true"`
	// ResponseTTL is how long a worker has to answer before the attempt expires.
	ResponseTTL time.Duration `yaml:"response_ttl" split_words:"true"`
}

type NegotiationConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// MQConfig enables RabbitMQ event publishing when URL is set.
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpireAssignments  string `yaml:"expire_assignments" split_words:"true"`
	ExpireNegotiations string `yaml:"expire_negotiations" split_words:"true"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9090
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if !c.Server.InMemory {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	if c.Wallet.Currency == "" {
		c.Wallet.Currency = "INR"
	}

	if c.Assignment.MinRating < 0 {
		return fmt.Errorf("assignment min rating must not be negative")
	}
	if c.Assignment.ResponseTTL == 0 {
		c.Assignment.ResponseTTL = 30 * time.Minute
	}
	if c.Negotiation.TTL == 0 {
		c.Negotiation.TTL = 48 * time.Hour
	}

	if c.MQ.Exchange == "" {
		c.MQ.Exchange = "bluecollar.events"
	}

	if c.Scheduler.ExpireAssignments == "" {
		c.Scheduler.ExpireAssignments = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ExpireNegotiations == "" {
		c.Scheduler.ExpireNegotiations = "0 0 * * * *" // hourly
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}
