package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2*time.Second, cfg.Broadcast.Interval)
	assert.Equal(t, 1, cfg.Broadcast.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ReportTTL)
	assert.Equal(t, 3*time.Second, cfg.School.LogoFetchTimeout)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BROADCAST_INTERVAL", "500ms")
	v.Set("REPORT_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("BROADCAST_WORKERS", 0)

	cfg := fromViper(v)
	assert.Equal(t, 500*time.Millisecond, cfg.Broadcast.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ReportTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 1, cfg.Broadcast.Workers)
}
