package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	validationCacheTTLKey       = "validation_cache_ttl"
	startupValidationTimeoutKey = "startup_validation_timeout"
	validatePathKey             = "validate_path"
)

type SessionConfig interface {
	GetValidationCacheTTL() time.Duration
	GetStartupValidationTimeout() time.Duration
	GetValidatePath() string
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetValidationCacheTTL is how long a successful token validation is trusted
// before the backend is asked again.
func (s Session) GetValidationCacheTTL() time.Duration {
	return s.v.GetDuration(validationCacheTTLKey)
}

func (s Session) GetStartupValidationTimeout() time.Duration {
	return s.v.GetDuration(startupValidationTimeoutKey)
}

// GetValidatePath is the backend endpoint that answers 200 for a valid token.
func (s Session) GetValidatePath() string {
	return s.v.GetString(validatePathKey)
}
