package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, "http://knowledge-engine:4000", c.Engines.ContentURL)
	assert.Equal(t, "/api/financial/summary/by_category", c.Engines.FinancialSummaryPath)
	assert.Equal(t, 10*time.Second, c.Engines.FeedbackTimeout)
	assert.Equal(t, "postgres", c.Ledger.Driver)
	assert.False(t, c.Redis.Enabled())
	assert.False(t, c.AMQP.Enabled())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LEDGER_DRIVER", "redis")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("ENGINE_TIMEOUT", "5s")

	c, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 9090, c.HTTP.Port)
	assert.Equal(t, "redis", c.Ledger.Driver)
	assert.True(t, c.Redis.Enabled())
	assert.Equal(t, 5*time.Second, c.Engines.Timeout)
}

func TestPostgresURL(t *testing.T) {
	p := Postgres{Host: "db", Port: "5432", User: "nexus", Password: "p@ss", Name: "nexus", SSLMode: "disable"}
	assert.Equal(t, "postgres://nexus:p%40ss@db:5432/nexus?sslmode=disable", p.URL())
}
