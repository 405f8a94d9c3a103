package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, AuthModeDev, cfg.AuthMode)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.Gamification.XPPerLesson)
	assert.Equal(t, 50, cfg.Gamification.XPCourseCompletion)
	assert.Equal(t, 30*time.Second, cfg.Gamification.LeaderboardCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "learning-events", cfg.Events.Topic)
	assert.Empty(t, cfg.Events.KafkaBrokers)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := FromViper(newTestViper(map[string]interface{}{
		"LOG_LEVEL":     "debug",
		"KAFKA_BROKERS": "k1:9092, k2:9092",
		"XP_PER_LESSON": 25,
	}))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 25, cfg.Gamification.XPPerLesson)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{"unknown auth mode", map[string]interface{}{"AUTH_MODE": "ldap"}},
		{"dev auth in production", map[string]interface{}{"ENVIRONMENT": "production"}},
		{"casdoor without endpoint", map[string]interface{}{"AUTH_MODE": "casdoor"}},
		{"negative xp", map[string]interface{}{"XP_PER_LESSON": -1}},
		{"empty database url", map[string]interface{}{"DATABASE_URL": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromViper(newTestViper(tt.overrides))
			assert.Error(t, err)
		})
	}
}
