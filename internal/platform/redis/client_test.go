package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditrisk/internal/platform/config"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("empty url means not configured", func(t *testing.T) {
		c, err := New(ctx, config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := New(ctx, config.RedisConfig{URL: "http://not-redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis URL")
	})
}
