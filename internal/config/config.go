package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Mode string
	}
	Database struct {
		Path string
	}
	Auth struct {
		SessionSecret     string
		SessionTTLMinutes int
		SecureCookie      bool
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		Retain    int
	}
	AWS struct {
		Profile string
	}
}

// SessionTTL is the configured session lifetime.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}

// BackupsEnabled reports whether a storage bucket is configured.
func (c Config) BackupsEnabled() bool {
	return strings.TrimSpace(c.Storage.Bucket) != ""
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		errs = append(errs, errors.New("auth session secret is required"))
	}
	if c.Auth.SessionTTLMinutes <= 0 {
		errs = append(errs, errors.New("auth session ttl must be positive"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.BackupsEnabled() && c.Storage.Retain <= 0 {
		errs = append(errs, errors.New("storage retain must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables, an optional .env file
// and an optional config file in the working directory.
func Load() (Config, error) {
	// variables already set in the environment win over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TASKTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/tasktracker.db")
	v.SetDefault("auth.sessionsecret", "")
	v.SetDefault("auth.sessionttlminutes", 1440)
	v.SetDefault("auth.securecookie", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "tasktracker-backups")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.retain", 7)
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
