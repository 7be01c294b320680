package yaconfig

import (
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yalogger"
)

// Bot is the configuration of cmd/yabot.
type Bot struct {
	Telegram Telegram
	Log      Log

	// RedisURL selects the Redis role repository; empty keeps roles in memory.
	RedisURL     string `default:""`
	DatabasePath string `default:"yabot.db"`

	// Roles seeds the role repository, e.g. "admin=1,2;mod=3".
	Roles       string  `default:""`
	BannedChats []int64 `default:""`
	StatusAddr  string  `default:":8080"`

	PluginInitTimeout         time.Duration `default:"30s"`
	StaleMessageWindow        time.Duration `default:"5m"`
	DisposeTimeout            time.Duration `default:"60s"`
	LowPriorityInterval       time.Duration `default:"15s"`
	CallbackSubscriptionLimit int           `default:"20"`
}

// Telegram holds the MTProto credentials.
type Telegram struct {
	AppID    int
	AppHash  string
	BotToken string
	ProxyURL string `default:""`
}

// Log configures yalogger.
type Log struct {
	Level      yalogger.Level `default:"info"`
	File       string         `default:""`
	MaxSizeMB  int            `default:"100"`
	MaxBackups int            `default:"3"`
}

// LoggerConfig converts Log into a yalogger.Config.
func (l Log) LoggerConfig() *yalogger.Config {
	return &yalogger.Config{
		BaseLoggerType: yalogger.Logrus,
		Level:          l.Level,
		FullTimestamp:  true,
		File:           l.File,
		MaxSizeMB:      l.MaxSizeMB,
		MaxBackups:     l.MaxBackups,
	}
}
