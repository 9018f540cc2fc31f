package config

import (
	"time"

	"github.com/spf13/viper"
)

const noticeDebounceKey = "notice_debounce"

type NotificationConfig interface {
	GetNoticeDebounce() time.Duration
}

type Notification struct {
	v *viper.Viper
}

var _ NotificationConfig = Notification{}

func (n Notification) GetNoticeDebounce() time.Duration {
	return n.v.GetDuration(noticeDebounceKey)
}
