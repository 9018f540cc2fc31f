package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	appNameKey    = "app_name"
	envKey        = "env"
	baseURLKey    = "base_url"
	pushURLKey    = "push_url"
	dataFolderKey = "data_folder"
	logLevelKey   = "log_level"
	storageKeyKey = "storage_key"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

// GetEnv returns DEV, TEST, QA or PROD.
func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envKey))
}

// GetBaseURL returns the REST backend origin including any path prefix
// (e.g., "https://school.example.com/api"), without a trailing slash.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.v.GetString(baseURLKey), "/")
}

// GetPushURL returns the websocket origin for notice pushes. When unset it is
// derived from the base URL by swapping the scheme.
func (e EnvVars) GetPushURL() string {
	if push := e.v.GetString(pushURLKey); push != "" {
		return strings.TrimRight(push, "/")
	}
	base := e.GetBaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func (e EnvVars) GetDataFolder() string {
	return e.v.GetString(dataFolderKey)
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelKey)
}

// GetStorageKey returns the hex encoded key used to encrypt the persisted
// session. Empty means the session file is stored in plain JSON.
func (e EnvVars) GetStorageKey() string {
	return e.v.GetString(storageKeyKey)
}
