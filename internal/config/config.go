package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "CLASSROOM"

type Config interface {
	EnvConfig
	SessionConfig
	NotificationConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetPushURL() string
	GetDataFolder() string
	GetLogLevel() string
	GetStorageKey() string
}

type mainConfig struct {
	EnvVars
	Session
	Notification
	HTTP
}

// Option overrides a configuration value, mostly for tests and CLI flags.
type Option func(v *viper.Viper)

// WithValue sets key to value, taking precedence over the environment.
func WithValue(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// WithDotEnv loads the given .env file instead of ./.env.
func WithDotEnv(path string) Option {
	return func(v *viper.Viper) {
		v.Set(dotEnvKey, path)
	}
}

const dotEnvKey = "dotenv"

func New(options ...Option) Config {
	v := viper.New()
	setDefaults(v)
	for _, opt := range options {
		opt(v)
	}
	loadDotEnv(v.GetString(dotEnvKey))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return mainConfig{
		EnvVars:      EnvVars{v: v},
		Session:      Session{v: v},
		Notification: Notification{v: v},
		HTTP:         HTTP{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault(dotEnvKey, ".env")
	v.SetDefault(appNameKey, "Classroom")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(baseURLKey, "http://localhost:8080/api")
	v.SetDefault(pushURLKey, "")
	v.SetDefault(dataFolderKey, defaultDataFolder())
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(storageKeyKey, "")
	v.SetDefault(validationCacheTTLKey, 60*time.Second)
	v.SetDefault(startupValidationTimeoutKey, 10*time.Second)
	v.SetDefault(validatePathKey, "/auth/validate")
	v.SetDefault(noticeDebounceKey, 250*time.Millisecond)
	v.SetDefault(requestTimeoutKey, 30*time.Second)
	v.SetDefault(flashTimeoutKey, 3*time.Second)
	v.SetDefault(downloadRevokeDelayKey, time.Second)
}

// loadDotEnv loads path if it exists. A missing file is not an error.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("cannot stat .env file")
		}
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cannot load .env file")
	}
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "classroom")
}
