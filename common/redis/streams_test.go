package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	id, err := PublishJSONToStream(ctx, client, "reminders:events", 0, map[string]string{"reminder_id": "r-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "reminders:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &payload))
	assert.Equal(t, "r-1", payload["reminder_id"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}

func TestStringify(t *testing.T) {
	cases := map[string]interface{}{
		"abc":      "abc",
		"42":       42,
		"7":        int64(7),
		"true":     true,
		"1.5":      1.5,
		`{"a":1}`:  map[string]int{"a": 1},
		"raw-byte": []byte("raw-byte"),
	}
	for want, in := range cases {
		got, err := stringify(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
