package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/clock"
)

func newCodec(t testing.TB) (*Codec, *clock.Fake) {
	clk := clock.NewFake(1_700_000_000)
	c, err := NewCodec("secret", time.Hour, clk)
	require.NoError(t, err)
	return c, clk
}

func TestCodec_RoundTrip(t *testing.T) {
	c, clk := newCodec(t)

	s, err := c.Encode(-1001234567890, 42, "super_aegis", 12)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s), MaxPayloadLen)

	p, err := c.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), p.ChatID)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "super_aegis", p.ItemID)
	assert.Equal(t, int64(12), p.Amount)
	assert.False(t, p.Expired(clk.Now()))

	clk.Advance(2 * time.Hour)
	assert.True(t, p.Expired(clk.Now()))
}

func TestCodec_RejectsTampering(t *testing.T) {
	c, _ := newCodec(t)
	s, err := c.Encode(-100, 42, "super_aegis", 12)
	require.NoError(t, err)

	tampered := strings.Replace(s, ":12:", ":1:", 1)
	_, err = c.Decode(tampered)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)

	other, err := NewCodec("other", time.Hour, clock.NewFake(0))
	require.NoError(t, err)
	_, err = other.Decode(s)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)

	for _, bad := range []string{"", "nodot", "a:b.c", "1:2:x:3:4.!!!"} {
		_, err = c.Decode(bad)
		assert.ErrorIs(t, err, model.ErrInvalidPayload, bad)
	}
}

func TestCodec_InvalidInput(t *testing.T) {
	_, err := NewCodec("", time.Hour, nil)
	assert.Error(t, err)

	c, _ := newCodec(t)
	_, err = c.Encode(1, 2, "bad:id", 3)
	assert.Error(t, err)
	_, err = c.Encode(1, 2, "", 3)
	assert.Error(t, err)
}

func TestCodec_RoundTripProperty(t *testing.T) {
	c, _ := newCodec(t)
	rapid.Check(t, func(rt *rapid.T) {
		chat := rapid.Int64Range(-1_009_999_999_999, -1).Draw(rt, "chat")
		user := rapid.Int64Range(1, 9_999_999_999).Draw(rt, "user")
		item := rapid.StringMatching(`[a-z_]{1,16}`).Draw(rt, "item")
		amount := rapid.Int64Range(1, 10_000).Draw(rt, "amount")

		s, err := c.Encode(chat, user, item, amount)
		if err != nil {
			rt.Fatalf("encode: %v", err)
		}
		p, err := c.Decode(s)
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		if p.ChatID != chat || p.UserID != user || p.ItemID != item || p.Amount != amount {
			rt.Fatalf("round trip mismatch: %+v", p)
		}
	})
}
