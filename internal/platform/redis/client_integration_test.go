//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"creditrisk/internal/platform/config"
	"creditrisk/pkg/testutil/containers"
)

func TestNewAgainstContainer(t *testing.T) {
	rc := containers.NewRedisContainer(t)

	cfg := config.Default().Redis
	cfg.URL = rc.URL
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Health(context.Background()))
	require.Equal(t, 0, c.DB())
	require.NotEmpty(t, c.Addr())
}
