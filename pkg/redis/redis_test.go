package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_New(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := Config{URL: "redis://" + mr.Addr() + "/0", DB: 2, ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestConfig_NotConfigured(t *testing.T) {
	cfg := Config{}
	assert.False(t, cfg.Enabled())
	_, err := cfg.New(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfig_BadURL(t *testing.T) {
	cfg := Config{URL: "not-a-url", DialTimeout: 1}
	_, err := cfg.New(context.Background())
	assert.Error(t, err)
}
