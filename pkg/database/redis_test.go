package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr(), DB: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "restu-food-cart:s1", "{}", 0).Err())
	assert.True(t, mr.Exists("restu-food-cart:s1"))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr})

	assert.Nil(t, client)
	assert.ErrorContains(t, err, "ping redis at "+addr)
}
