// Package config provides functionality for managing configuration options
// for the application using a JSON file, command-line flags and environment
// variables, applied in that order.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Duration is a time.Duration that decodes from a JSON string such as "168h".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`
	// DataDir is the root directory for the user directory file and the
	// per-tenant task stores.
	DataDir string `json:"data_dir"`
	// JWTSecret signs session credentials. The server refuses to start without it.
	JWTSecret string `json:"jwt_secret"`
	// TokenTTL is the lifetime of a session credential and its cookie.
	TokenTTL Duration `json:"token_ttl"`
	// DatabaseDSN, when set, stores the user directory in PostgreSQL instead of SQLite.
	DatabaseDSN string `json:"database_dsn"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
	// SecureCookie sets the Secure attribute on the session cookie.
	SecureCookie bool `json:"secure_cookie"`
	// CheckpointInterval is the period of WAL checkpoints over open tenant stores.
	CheckpointInterval Duration `json:"checkpoint_interval"`
	// BcryptCost is the bcrypt work factor for new password hashes.
	BcryptCost int `json:"bcrypt_cost"`
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// UsersDBPath is the location of the SQLite user directory.
func (o *Options) UsersDBPath() string {
	return filepath.Join(o.DataDir, "users.db")
}

// TodosDir is the directory holding one task store per tenant.
func (o *Options) TodosDir() string {
	return filepath.Join(o.DataDir, "todos")
}

func defaults() *Options {
	return &Options{
		Address:            "localhost:8080",
		DataDir:            "data",
		TokenTTL:           Duration(7 * 24 * time.Hour),
		LogLevel:           "info",
		CheckpointInterval: Duration(10 * time.Minute),
		BcryptCost:         10,
		Config:             "config.json",
	}
}

func bindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.Address, "address", "a", o.Address, "run on ip:port server")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "directory for users.db and tenant stores")
	fs.StringVarP(&o.JWTSecret, "secret", "s", o.JWTSecret, "session signing secret")
	fs.DurationVar((*time.Duration)(&o.TokenTTL), "token-ttl", time.Duration(o.TokenTTL), "session lifetime")
	fs.StringVarP(&o.DatabaseDSN, "dsn", "d", o.DatabaseDSN, "postgres DSN for the user directory (optional)")
	fs.StringVarP(&o.LogLevel, "log-level", "l", o.LogLevel, "log level")
	fs.BoolVar(&o.SecureCookie, "secure-cookie", o.SecureCookie, "mark the session cookie Secure")
	fs.DurationVar((*time.Duration)(&o.CheckpointInterval), "checkpoint-interval", time.Duration(o.CheckpointInterval), "WAL checkpoint period")
	fs.IntVar(&o.BcryptCost, "bcrypt-cost", o.BcryptCost, "bcrypt cost")
	fs.StringVar(&o.TLSCert, "tls-cert", o.TLSCert, "path to TLS certificate")
	fs.StringVar(&o.TLSKey, "tls-key", o.TLSKey, "path to TLS key")
	fs.StringVarP(&o.Config, "config", "c", o.Config, "path to config file")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	options, err := parse(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("error while parsing configuration: %v", err)
	}
	return options
}

func parse(args []string, getenv func(string) string) (*Options, error) {
	options := defaults()

	// First pass only locates the config file.
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	bindFlags(fs, options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			fileOpts := defaults()
			if err := json.Unmarshal(data, fileOpts); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
			fileOpts.Config = options.Config
			options = fileOpts

			// Explicit flags win over the file.
			fs = pflag.NewFlagSet("server", pflag.ContinueOnError)
			bindFlags(fs, options)
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
		}
	}

	if v := getenv("SERVER_ADDRESS"); v != "" {
		options.Address = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		options.DataDir = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		options.JWTSecret = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		options.SecureCookie = secure
	}

	return options, nil
}
