package config

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("SWARMSHIP_TEST_STR", "value")

	assert.Equal(t, "value", GetEnv("SWARMSHIP_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("SWARMSHIP_TEST_MISSING", "fallback"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("SWARMSHIP_TEST_INT", " 42 ")
	t.Setenv("SWARMSHIP_TEST_BAD_INT", "forty-two")
	t.Setenv("SWARMSHIP_TEST_FLOAT", "1.5")
	t.Setenv("SWARMSHIP_TEST_BOOL", "true")
	t.Setenv("SWARMSHIP_TEST_DURATION", "250ms")

	assert.Equal(t, 42, GetEnvInt("SWARMSHIP_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("SWARMSHIP_TEST_BAD_INT", 1))
	assert.Equal(t, 1.5, GetEnvFloat("SWARMSHIP_TEST_FLOAT", 0))
	assert.True(t, GetEnvBool("SWARMSHIP_TEST_BOOL", false))
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("SWARMSHIP_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("SWARMSHIP_TEST_MISSING", time.Second))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CANVAS_WIDTH", "1024")
	t.Setenv("LOG_LEVEL", "nonsense")
	t.Setenv("LOG_FILE", "/tmp/swarmship.log")

	cfg := Load()

	assert.Equal(t, 1024, cfg.CanvasWidth)
	assert.Equal(t, DefaultCanvasHeight, cfg.CanvasHeight)
	assert.Equal(t, DefaultCollisionPolicy, cfg.CollisionPolicy)
	assert.Equal(t, log.InfoLevel, cfg.Level())
	assert.Equal(t, "/tmp/swarmship.log", cfg.LogFile)
}
