package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file values.
//
// A key like "jwt.secret" is overridden by AUTHD_JWT_SECRET.
const EnvPrefix = "AUTHD"

var defaults = map[string]any{
	"app.tz":                                       "UTC",
	"app.brand":                                    "CoinCraze",
	"app.server.http.address":                      ":8080",
	"app.server.log_bodies":                        true,
	"app.server.trusted_proxies":                   "127.0.0.1/32,::1/128",
	"app.server.shutdown_timeout_seconds":          10,
	"app.server.http.write_timeout_seconds":        30,
	"app.startup.ping_timeout_seconds":             30,
	"app.startup.ping_retries":                     5,
	"jwt.ttl_minutes":                              24 * 60,
	"hash.password.algorithm":                      "bcrypt",
	"hash.bcrypt.cost":                             10,
	"validation.password_min_length":               1,
	"modules.identity.otp.ledger":                  "memory",
	"modules.identity.otp.ttl_minutes":             10,
	"modules.identity.otp.require_verified":        true,
	"modules.identity.otp.verified_window_minutes": 5,
	"modules.identity.otp.sweep_interval_seconds":  60,
	"modules.identity.notifier.timeout_seconds":    10,
	"modules.identity.notifier.max_retries":        2,
	"modules.identity.enabled":                     true,
	"modules.notification.enabled":                 true,
	"modules.notification.page_limit_default":      20,
	"modules.notification.page_limit_max":          100,
	"modules.notification.consumer_concurrency":    10,
	"modules.notification.stream_buffer":           16,
	"messaging.driver":                             "none",
	"instrument.log_level":                         "info",
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewViper loads configuration from the given file path and returns a Viper-backed Config.
//
// The config file type is inferred by Viper from the filename extension. The
// file is watched and re-read on change.
func NewViper(pathFile string) (*Viper, error) {
	v := newViper()

	filename := path.Base(pathFile)
	filePath := path.Dir(pathFile)

	configName := path.Base(filename[:len(filename)-len(path.Ext(filename))])

	v.AddConfigPath(filePath)
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "error", err)
			return
		}
		slog.Info("config reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory and returns a Viper-backed Config.
// configType should be a format supported by Viper (e.g. "yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetString(key string) string   { return vc.v.GetString(key) }
func (vc *Viper) GetBool(key string) bool       { return vc.v.GetBool(key) }
func (vc *Viper) GetInt(key string) int         { return vc.v.GetInt(key) }
func (vc *Viper) GetInt32(key string) int32     { return vc.v.GetInt32(key) }
func (vc *Viper) GetInt64(key string) int64     { return vc.v.GetInt64(key) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }

func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Minute
}

// GetArray drops blank elements, so "a, ,b" yields [a b].
func (vc *Viper) GetArray(key string) []string {
	var raw []string
	switch vc.v.Get(key).(type) {
	case []any, []string:
		raw = vc.v.GetStringSlice(key)
	default:
		raw = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(raw, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// Missing treats a blank string as absent.
func (vc *Viper) Missing(keys ...string) []string {
	return lo.Filter(keys, func(key string, _ int) bool {
		if !vc.v.IsSet(key) {
			return true
		}
		str, ok := vc.v.Get(key).(string)
		return ok && strings.TrimSpace(str) == ""
	})
}

// Close stops nothing; file watching ends with the process.
func (vc *Viper) Close() error {
	return nil
}
