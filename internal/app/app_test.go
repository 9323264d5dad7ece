package app

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/poofware/todo-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	assert.Nil(t, NewRedisClient(&config.Config{}), "no address configured")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()

	client := NewRedisClient(&config.Config{RedisAddr: addr})
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, NewRedisClient(&config.Config{RedisAddr: addr}), "unreachable server")
}
