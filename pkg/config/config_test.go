package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3, cfg.Grading.MaxAttempts)
	assert.Equal(t, 3.0, cfg.Grading.PassingScore)
	assert.True(t, cfg.Grading.PropagateOnRead)
	assert.Equal(t, 30*24*time.Hour, cfg.Grading.SubmissionTTL)
	assert.Equal(t, time.Duration(0), cfg.Grading.ResultsTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("GRADING_MAX_ATTEMPTS", 0)
	v.Set("TRACING_SAMPLE_RATIO", 4.0)
	v.Set("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	v.Set("RATE_LIMIT_WINDOW", "not-a-duration")

	cfg := fromViper(v)

	assert.Equal(t, 3, cfg.Grading.MaxAttempts)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRatio)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}
