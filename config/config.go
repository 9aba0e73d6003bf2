package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "VSAQ_"

type Config struct {
	Host          string `koanf:"host" validate:"required"`
	Port          uint   `koanf:"port" validate:"min=1,max=65535"`
	DBUrl         string `koanf:"db_url" validate:"required"`
	TokenSecret   string `koanf:"token_secret"`
	TokenTTLSecs  uint   `koanf:"token_ttl" validate:"min=1"`
	Debug         bool   `koanf:"debug"`
	LogFormat     string `koanf:"log_format" validate:"oneof=text json"`
	BaseURL       string `koanf:"base_url" validate:"omitempty,url"`
	SecureCookies bool   `koanf:"secure_cookies"`

	Addr     string        `koanf:"-"`
	TokenTTL time.Duration `koanf:"-"`
}

func Defaults() map[string]any {
	return map[string]any{
		"host":           "0.0.0.0",
		"port":           80,
		"db_url":         "vsaq.sqlite",
		"token_ttl":      120,
		"debug":          false,
		"log_format":     "text",
		"secure_cookies": false,
	}
}

// Load builds the configuration from, in increasing priority: defaults, the
// JSON file at path (when it exists), VSAQ_* environment variables and
// overrides (normally the command line flags the user actually set).
func Load(path string, overrides map[string]any) (cfg Config, err error) {
	k := koanf.New(".")
	for key, value := range Defaults() {
		k.Set(key, value)
	}

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err = k.Load(file.Provider(path), json.Parser()); err != nil {
				return cfg, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return cfg, fmt.Errorf("stat config file %s: %w", path, statErr)
		}
	}

	if err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range overrides {
		k.Set(key, value)
	}

	if err = k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err = validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	cfg.TokenTTL = time.Duration(cfg.TokenTTLSecs) * time.Second
	return cfg, nil
}

// RequireSecret reports a missing token secret; only the server needs one.
func (cfg Config) RequireSecret() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter token_secret")
	}
	return nil
}

// VSAQ_DB_URL -> db_url
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// FillURL is the respondent address for link.
func (cfg Config) FillURL(link string) string {
	base := cfg.BaseURL
	if base == "" {
		base = cfg.Url()
	}
	return strings.TrimRight(base, "/") + "/fill/" + link
}
