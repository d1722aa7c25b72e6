// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package config loads AdminKit configuration from defaults, an optional
// YAML file, command-line flags and secret environment variables.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/adminkit/adminkit/internal/xdg"
)

// Config is the complete AdminKit configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Security SecurityConfig `koanf:"security" yaml:"security"`
	SMTP     SMTPConfig     `koanf:"smtp" yaml:"smtp"`
	Mail     MailConfig     `koanf:"mail" yaml:"mail"`
	OTP      OTPConfig      `koanf:"otp" yaml:"otp"`
	Admin    AdminConfig    `koanf:"admin" yaml:"admin"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`

	Federated FederatedConfig `koanf:"federated" yaml:"federated"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `koanf:"addr" yaml:"addr"`
	CookieName   string        `koanf:"cookie_name" yaml:"cookie_name"`
	CookieMaxAge time.Duration `koanf:"cookie_max_age" yaml:"cookie_max_age"`
	CookieSecure bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
	CORSOrigins  []string      `koanf:"cors_origins" yaml:"cors_origins"`
	PublicRoutes []string      `koanf:"public_routes" yaml:"public_routes"`
}

// SecurityConfig holds token keys and the password hashing cost.
type SecurityConfig struct {
	SigningSecret string `koanf:"signing_secret" yaml:"signing_secret"`
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key"`
	BcryptCost    int    `koanf:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// SMTPConfig configures outgoing mail.
type SMTPConfig struct {
	Provider       string   `koanf:"provider" yaml:"provider"`
	Host           string   `koanf:"host" yaml:"host"`
	Port           int      `koanf:"port" yaml:"port"`
	Username       string   `koanf:"username" yaml:"username"`
	Password       string   `koanf:"password" yaml:"password"`
	Sender         string   `koanf:"sender" yaml:"sender"`
	CompanyName    string   `koanf:"company_name" yaml:"company_name"`
	AllowedDomains []string `koanf:"allowed_domains" yaml:"allowed_domains"`
	DryRun         bool     `koanf:"dry_run" yaml:"dry_run"`
}

// MailConfig tunes the delivery worker.
type MailConfig struct {
	PollInterval  time.Duration `koanf:"poll_interval" yaml:"poll_interval"`
	QueueCapacity int           `koanf:"queue_capacity" yaml:"queue_capacity"`
	RetryCap      time.Duration `koanf:"retry_cap" yaml:"retry_cap"`
	MaxAttempts   int           `koanf:"max_attempts" yaml:"max_attempts"`
}

// OTPConfig configures one-time passwords.
type OTPConfig struct {
	TTL time.Duration `koanf:"ttl" yaml:"ttl"`
}

// AdminConfig describes the seed administrator.
type AdminConfig struct {
	UserName string `koanf:"user_name" yaml:"user_name"`
	Email    string `koanf:"email" yaml:"email"`
	Password string `koanf:"password" yaml:"password"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// FederatedConfig enables sign-in with identity tokens minted by a trusted
// identity gateway. An empty Secret disables the federated login route.
type FederatedConfig struct {
	Secret   string `koanf:"secret" yaml:"secret"`
	Issuer   string `koanf:"issuer" yaml:"issuer"`
	Audience string `koanf:"audience" yaml:"audience"`
}

// defaults are loaded before any file, flag or environment value.
var defaults = map[string]any{
	"server.addr":           ":8080",
	"server.cookie_name":    "jwt",
	"server.cookie_max_age": 24 * time.Hour,
	"server.cookie_secure":  false,
	"server.cors_origins":   []string{"*"},
	"server.public_routes":  []string{"/admin/public/**"},
	"security.bcrypt_cost":  12,
	"smtp.port":             587,
	"smtp.company_name":     "AdminKit",
	"smtp.allowed_domains":  []string{},
	"mail.poll_interval":    time.Second,
	"mail.queue_capacity":   1000,
	"mail.retry_cap":        5 * time.Minute,
	"mail.max_attempts":     8,
	"otp.ttl":               5 * time.Minute,
	"log.format":            "json",
	"log.level":             "info",
	"metrics.addr":          "127.0.0.1:9100",
	"federated.audience":    "adminkit",
}

// Secret environment variables and the keys they set.
var secretEnv = map[string]string{
	"DATABASE_URL":            "database.url",
	"ADMINKIT_SIGNING_SECRET": "security.signing_secret",
	"ADMINKIT_ENCRYPTION_KEY": "security.encryption_key",
	"ADMINKIT_SMTP_PASSWORD":  "smtp.password",
	"ADMINKIT_ADMIN_PASSWORD": "admin.password",

	"ADMINKIT_FEDERATED_SECRET": "federated.secret",
}

// Command-line flags and the keys they set.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"metrics-addr":  "metrics.addr",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"cookie-secure": "server.cookie_secure",
	"smtp-dry-run":  "smtp.dry_run",
}

// RegisterFlags adds the flags Load understands to fs. The flag defaults only
// document the built-in values; unchanged flags never override a file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", defaults["server.addr"].(string), "HTTP API listen address")
	fs.String("metrics-addr", defaults["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", defaults["log.format"].(string), "log format (json or text)")
	fs.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure")
	fs.Bool("smtp-dry-run", false, "log outgoing mail instead of sending it")
}

type loadOptions struct {
	lookupEnv func(string) (string, bool)
	dotenv    string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLookupEnv overrides the environment lookup.
func WithLookupEnv(lookup func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) { o.lookupEnv = lookup }
}

// WithDotEnv sets the .env file read before the environment. An empty path
// disables it.
func WithDotEnv(path string) LoadOption {
	return func(o *loadOptions) { o.dotenv = path }
}

// Load builds the configuration. When path is empty the XDG default file is
// used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet, opts ...LoadOption) (*Config, error) {
	o := loadOptions{lookupEnv: os.LookupEnv, dotenv: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path == "" {
		if def, ok := xdg.DefaultConfigFile(); ok {
			path = def
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if err := loadSecrets(k, o); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

func loadSecrets(k *koanf.Koanf, o loadOptions) error {
	if o.dotenv != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(o.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("CONFIG_READ_FAILED").With("path", o.dotenv).Wrap(err)
		}
	}
	for env, key := range secretEnv {
		if val, ok := o.lookupEnv(env); ok && val != "" {
			if err := k.Set(key, val); err != nil {
				return oops.Code("CONFIG_LOAD_FAILED").With("env", env).Wrap(err)
			}
		}
	}
	return nil
}

const redacted = "[redacted]"

// Redacted returns a copy of c with secrets masked. The database URL keeps
// everything but its password.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	c.Security.SigningSecret = mask(c.Security.SigningSecret)
	c.Security.EncryptionKey = mask(c.Security.EncryptionKey)
	c.SMTP.Password = mask(c.SMTP.Password)
	c.Admin.Password = mask(c.Admin.Password)
	c.Federated.Secret = mask(c.Federated.Secret)
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err == nil {
			c.Database.URL = u.Redacted()
		} else {
			c.Database.URL = redacted
		}
	}
	return c
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}
