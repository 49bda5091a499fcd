package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/franco-game/internal/config"
)

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.PersistenceConfig{
		MaxAttempts:    2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		AttemptTimeout: 3 * time.Second,
	})
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialInterval)
	assert.Equal(t, time.Second, p.MaxInterval)
	assert.Equal(t, 3*time.Second, p.AttemptTimeout)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestNewStoreFromConfig(t *testing.T) {
	store, err := NewStoreFromConfig(config.PersistenceConfig{Backend: "http", Endpoint: "http://localhost/game"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPStore{}, store)

	store, err = NewStoreFromConfig(config.PersistenceConfig{Backend: "file", SaveDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = NewStoreFromConfig(config.PersistenceConfig{Backend: "s3"})
	assert.Error(t, err)
}

func TestNewGatewayFromConfig(t *testing.T) {
	g, err := NewGatewayFromConfig(config.PersistenceConfig{
		Backend:       "file",
		SaveDir:       t.TempDir(),
		MaxAttempts:   1,
		ProbeInterval: time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, g.Online())
	assert.Equal(t, time.Minute, g.probeInterval)
}
