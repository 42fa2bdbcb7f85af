package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/mailer"
	"github.com/nkiryanov/bazario/internal/ratelimit"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
	defaultFrontendURL     = "http://localhost:3000"
	defaultSMTPPort        = 587
)

type SMTPConfig struct {
	// Mails are written to log if host is empty
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLSMode  string `yaml:"tls_mode"` // auto, ssl or none
}

type Config struct {
	// Default logging level
	LogLevel string `yaml:"log_level"`

	// Address on which the service will be run
	ListenAddr string `yaml:"address"`

	// Database to connect to
	DatabaseDSN string `yaml:"database_uri"`

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string `yaml:"secret_key"`

	// Environment
	Environment string `yaml:"environment"`

	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	VerificationTTL time.Duration `yaml:"verification_ttl"`

	// Links in mails lead to frontend pages
	FrontendURL string     `yaml:"frontend_url"`
	SMTP        SMTPConfig `yaml:"smtp"`

	// Rate limit counters kept in redis if set, in memory otherwise
	RedisURL        string        `yaml:"redis_url"`
	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		VerificationTTL: defaultVerificationTTL,
		FrontendURL:     defaultFrontendURL,
		SMTP:            SMTPConfig{Port: defaultSMTPPort, TLSMode: mailer.TLSModeAuto},
		RateLimit:       ratelimit.DefaultLimit,
		RateLimitWindow: ratelimit.DefaultWindow,
	}
}

// Load options from yaml file. Options not present in file stay unchanged
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("can't parse config file %s: %w", path, err)
	}
	return nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"DATABASE_URI":      setString(&c.DatabaseDSN),
		"SECRET_KEY":        setString(&c.SecretKey),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
		"ACCESS_TOKEN_TTL":  setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL": setDuration(&c.RefreshTokenTTL),
		"VERIFICATION_TTL":  setDuration(&c.VerificationTTL),
		"FRONTEND_URL":      setString(&c.FrontendURL),
		"SMTP_HOST":         setString(&c.SMTP.Host),
		"SMTP_PORT":         setInt(&c.SMTP.Port),
		"SMTP_USERNAME":     setString(&c.SMTP.Username),
		"SMTP_PASSWORD":     setString(&c.SMTP.Password),
		"SMTP_FROM":         setString(&c.SMTP.From),
		"SMTP_TLS_MODE":     setString(&c.SMTP.TLSMode),
		"REDIS_URL":         setString(&c.RedisURL),
		"RATE_LIMIT":        setInt(&c.RateLimit),
		"RATE_LIMIT_WINDOW": setDuration(&c.RateLimitWindow),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("bazario", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.VerificationTTL, "verification-ttl", c.VerificationTTL, "Email verification and password restore token lifetime")
	fs.StringVar(&c.FrontendURL, "frontend-url", c.FrontendURL, "Frontend address used in mail links")
	fs.StringVar(&c.SMTP.Host, "smtp-host", c.SMTP.Host, "SMTP server host, mails are logged if empty")
	fs.IntVar(&c.SMTP.Port, "smtp-port", c.SMTP.Port, "SMTP server port")
	fs.StringVar(&c.SMTP.From, "smtp-from", c.SMTP.From, "Mail sender address")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL for rate limit counters, in memory if empty")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "Requests allowed per client in rate limit window")
	fs.DurationVar(&c.RateLimitWindow, "rate-limit-window", c.RateLimitWindow, "Rate limit window")

	return fs.Parse(args)
}
