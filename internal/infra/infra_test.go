package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestConstructorsRequireURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	require.Error(t, err)
	_, err = NewPostgresPool(context.Background(), "")
	require.Error(t, err)
	_, err = NewRedisClient(context.Background(), "://bad")
	require.Error(t, err)
}
