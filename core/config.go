package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		Port                      string        `mapstructure:"port"`
		DebugHost                 string        `mapstructure:"debug_host"`
		ReadTimeout               time.Duration `mapstructure:"read_timeout"`
		WriteTimeout              time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdown_timeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwt_expiration_delta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwt_refresh_expiration_delta"`
		DisableReqLogs            bool          `mapstructure:"disable_req_logs"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"admin_user"`
		AdminPassword string `mapstructure:"admin_password"`
		DisableTLS    bool   `mapstructure:"disable_tls"`
	}

	ScanConfig struct {
		SessionTTL time.Duration `mapstructure:"session_ttl"`
	}

	Config struct {
		Env                       string        `mapstructure:"env"`
		Build                     string        `mapstructure:"build"`
		Debug                     bool          `mapstructure:"debug"`
		TestMode                  bool          `mapstructure:"test_mode"`
		AppName                   string        `mapstructure:"app_name"`
		SecretKey                 string        `mapstructure:"secret_key"`
		FrontendBaseURL           string        `mapstructure:"frontend_base_url"`
		DefaultFromEmailName      string        `mapstructure:"default_from_email_name"`
		DefaultFromEmailAddress   string        `mapstructure:"default_from_email_address"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"password_reset_timeout_delta"`
		Timezone                  string        `mapstructure:"timezone"`
		RollbarToken              string        `mapstructure:"rollbar_token"`
		SendgridAPIKey            string        `mapstructure:"sendgrid_api_key"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Scan     ScanConfig     `mapstructure:"scan"`

		location *time.Location
	}
)

func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromEmailName, Address: c.DefaultFromEmailAddress}
}

// Location is the time zone used to compute calendar dates ("today").
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Validate checks that the values the application cannot start without are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return errors.Wrapf(err, "loading timezone %q", c.Timezone)
		}
		c.location = loc
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "DEV")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("app_name", "Karo")
	v.SetDefault("secret_key", "")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email_name", "Karo")
	v.SetDefault("default_from_email_address", "noreply@localhost")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("timezone", "")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debug_host", "0.0.0.0:4000")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 12*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.disable_req_logs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "karo")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.admin_user", "")
	v.SetDefault("database.admin_password", "")
	v.SetDefault("database.disable_tls", false)

	v.SetDefault("scan.session_ttl", 15*time.Minute)
}

// NewConfig loads the configuration of the current ENV (DEV by default; TEST, QA, PROD)
// from `config/.env.<env>` (if it exists) and the environment.
// Variables are prefixed with the ENV, nested keys are joined with "_": DEV_DATABASE_HOST.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.Set("env", env)
	if env == "TEST" {
		v.SetDefault("test_mode", true)
	}
	if env == "QA" || env == "PROD" {
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (env=%s build=%s debug=%t)", c.AppName, c.Env, c.Build, c.Debug)
}
