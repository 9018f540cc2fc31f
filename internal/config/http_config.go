package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	requestTimeoutKey      = "request_timeout"
	flashTimeoutKey        = "flash_timeout"
	downloadRevokeDelayKey = "download_revoke_delay"
)

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
	GetFlashTimeout() time.Duration
	GetDownloadRevokeDelay() time.Duration
}

type HTTP struct {
	v *viper.Viper
}

var _ HTTPConfig = HTTP{}

func (h HTTP) GetRequestTimeout() time.Duration {
	return h.v.GetDuration(requestTimeoutKey)
}

// GetFlashTimeout is how long success banners stay visible.
func (h HTTP) GetFlashTimeout() time.Duration {
	return h.v.GetDuration(flashTimeoutKey)
}

// GetDownloadRevokeDelay is how long a downloaded temp file lives after it
// was handed to the saver.
func (h HTTP) GetDownloadRevokeDelay() time.Duration {
	return h.v.GetDuration(downloadRevokeDelayKey)
}
