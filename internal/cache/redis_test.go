package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, ttl time.Duration) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestKey(t *testing.T) {
	a := Key("gestures", []byte("image-a"))
	b := Key("gestures", []byte("image-b"))
	c := Key("landmarks", []byte("image-a"))

	if a == b {
		t.Error("different images should produce different keys")
	}
	if a == c {
		t.Error("different endpoints should produce different keys")
	}
	if a != Key("gestures", []byte("image-a")) {
		t.Error("key should be deterministic")
	}
	if !strings.HasPrefix(a, "gestures:") {
		t.Errorf("expected endpoint prefix, got %q", a)
	}
	// endpoint + ":" + 64 hex characters
	if len(a) != len("gestures:")+64 {
		t.Errorf("unexpected key length %d", len(a))
	}
}

func TestNew_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test")
	}

	// Port 1 on localhost is reserved and refuses connections.
	if _, err := New("127.0.0.1:1", time.Minute); err == nil {
		t.Error("expected error connecting to unreachable redis")
	}
}

func TestClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t, time.Minute)
	key := Key("gestures", []byte("frame"))

	t.Run("miss", func(t *testing.T) {
		val, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("hit after set", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, key, []byte(`{"num_hands":1}`)))

		val, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"num_hands":1}`, string(val))
	})

	t.Run("stored under prefix with ttl", func(t *testing.T) {
		assert.True(t, mr.Exists("mudra:"+key))
		assert.False(t, mr.Exists(key))
		assert.Equal(t, time.Minute, mr.TTL("mudra:"+key))
	})

	t.Run("miss after ttl", func(t *testing.T) {
		mr.FastForward(time.Minute)

		_, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClient_GetError(t *testing.T) {
	c, mr := newTestClient(t, time.Minute)
	mr.Close()

	_, ok, err := c.Get(context.Background(), "gestures:abc")
	assert.Error(t, err)
	assert.False(t, ok)
}
