package yaconfig_test

import (
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaconfig"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Host string `default:"localhost"`
	Port uint16 `default:"6379"`
}

type sample struct {
	Name     string
	Count    int8           `default:"3"`
	Ratio    float64        `default:"0.5"`
	Enabled  bool           `default:"true"`
	Timeout  time.Duration  `default:"1m30s"`
	IDs      []int64        `default:"1, 2,3"`
	Optional string         `default:""`
	Level    yalogger.Level `default:"warn"`
	Redis    nested
}

func newLogger() yalogger.Logger {
	return yalogger.NewBaseLogger(nil).NewLogger()
}

func TestLoadFromEnv_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("NAME", "bot")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("IDS", "7")

	var cfg sample
	require.Nil(t, yaconfig.LoadFromEnv(&cfg, newLogger()))

	expected := sample{
		Name:    "bot",
		Count:   3,
		Ratio:   0.5,
		Enabled: true,
		Timeout: 90 * time.Second,
		IDs:     []int64{7},
		Level:   yalogger.WarnLevel,
		Redis:   nested{Host: "localhost", Port: 6380},
	}

	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnv_ExistingValueKept(t *testing.T) {
	cfg := sample{Name: "preset", Count: 9}

	require.Nil(t, yaconfig.LoadFromEnv(&cfg, newLogger()))

	assert.Equal(t, "preset", cfg.Name)
	assert.Equal(t, int8(9), cfg.Count)
	assert.Equal(t, []int64{1, 2, 3}, cfg.IDs)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	t.Run("[Required] - missing untagged field", func(t *testing.T) {
		var cfg sample

		err := yaconfig.LoadFromEnv(&cfg, newLogger())
		require.NotNil(t, err)
		assert.ErrorIs(t, err, yaconfig.ErrValueIsRequired)
	})

	t.Run("[Overflow] - int8", func(t *testing.T) {
		t.Setenv("NAME", "x")
		t.Setenv("COUNT", "300")

		var cfg sample

		err := yaconfig.LoadFromEnv(&cfg, newLogger())
		require.NotNil(t, err)
		assert.ErrorIs(t, err, yaconfig.ErrOverflow)
	})

	t.Run("[Parse] - bad duration", func(t *testing.T) {
		t.Setenv("NAME", "x")
		t.Setenv("TIMEOUT", "soon")

		var cfg sample

		require.NotNil(t, yaconfig.LoadFromEnv(&cfg, newLogger()))
	})

	t.Run("[Parse] - bad level", func(t *testing.T) {
		t.Setenv("NAME", "x")
		t.Setenv("LEVEL", "loud")

		var cfg sample

		err := yaconfig.LoadFromEnv(&cfg, newLogger())
		require.NotNil(t, err)
		assert.ErrorIs(t, err, yalogger.ErrInvalidLogLevel)
	})

	t.Run("[Kind] - not a struct", func(t *testing.T) {
		value := 5

		err := yaconfig.LoadFromEnv(&value, newLogger())
		require.NotNil(t, err)
		assert.ErrorIs(t, err, yaconfig.ErrConfigMustBeStruct)
	})
}

func TestBot_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_APP_ID", "12345")
	t.Setenv("TELEGRAM_APP_HASH", "hash")
	t.Setenv("TELEGRAM_BOT_TOKEN", "1:abc")
	t.Setenv("BANNED_CHATS", "-100123,-5")
	t.Setenv("LOG_LEVEL", "debug")

	var cfg yaconfig.Bot
	require.Nil(t, yaconfig.LoadFromEnv(&cfg, newLogger()))

	assert.Equal(t, 12345, cfg.Telegram.AppID)
	assert.Equal(t, "1:abc", cfg.Telegram.BotToken)
	assert.Empty(t, cfg.Telegram.ProxyURL)
	assert.Equal(t, yalogger.DebugLevel, cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, []int64{-100123, -5}, cfg.BannedChats)
	assert.Equal(t, "yabot.db", cfg.DatabasePath)
	assert.Equal(t, ":8080", cfg.StatusAddr)
	assert.Equal(t, 30*time.Second, cfg.PluginInitTimeout)
	assert.Equal(t, 5*time.Minute, cfg.StaleMessageWindow)
	assert.Equal(t, time.Minute, cfg.DisposeTimeout)
	assert.Equal(t, 15*time.Second, cfg.LowPriorityInterval)
	assert.Equal(t, 20, cfg.CallbackSubscriptionLimit)

	logConfig := cfg.Log.LoggerConfig()
	assert.Equal(t, yalogger.DebugLevel, logConfig.Level)
}
