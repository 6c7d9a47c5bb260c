// Package payment signs and verifies the invoice payloads round-tripped
// through the stars payment provider.
//
// A payload is "chat:user:item:amount:exp.sig" where sig is the raw-url
// base64 HS256 signature of the part before the dot. The provider limits
// payloads to 128 bytes, which rules out a full JWT.
package payment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/clock"
)

// MaxPayloadLen is the provider's limit on invoice payloads.
const MaxPayloadLen = 128

// Payload is the decoded content of an invoice payload.
type Payload struct {
	ChatID    int64
	UserID    int64
	ItemID    string
	Amount    int64
	ExpiresAt int64
}

// Expired reports whether the payload is past its expiry at now.
func (p *Payload) Expired(now int64) bool {
	return p.ExpiresAt > 0 && now > p.ExpiresAt
}

// Codec signs and verifies payloads with a shared secret.
type Codec struct {
	key   []byte
	ttl   time.Duration
	clock clock.Clock
}

// NewCodec creates a Codec. The secret must not be empty.
func NewCodec(secret string, ttl time.Duration, clk clock.Clock) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("payment payload secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Codec{key: []byte(secret), ttl: ttl, clock: clk}, nil
}

// Encode builds a signed payload for one item purchase.
func (c *Codec) Encode(chatID, userID int64, itemID string, amount int64) (string, error) {
	if strings.ContainsAny(itemID, ":.") || itemID == "" {
		return "", fmt.Errorf("invalid item id %q", itemID)
	}
	exp := c.clock.Now() + int64(c.ttl/time.Second)
	body := strings.Join([]string{
		strconv.FormatInt(chatID, 10),
		strconv.FormatInt(userID, 10),
		itemID,
		strconv.FormatInt(amount, 10),
		strconv.FormatInt(exp, 10),
	}, ":")

	sig, err := jwt.SigningMethodHS256.Sign(body, c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	payload := body + "." + base64.RawURLEncoding.EncodeToString(sig)
	if len(payload) > MaxPayloadLen {
		return "", fmt.Errorf("payload is %d bytes, limit %d", len(payload), MaxPayloadLen)
	}
	return payload, nil
}

// Decode verifies the signature and parses the payload. Expiry is left to the
// caller: completions of an already approved checkout must still be honoured.
func (c *Codec) Decode(payload string) (*Payload, error) {
	body, encSig, ok := strings.Cut(payload, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", model.ErrInvalidPayload)
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidPayload, err)
	}
	if err := jwt.SigningMethodHS256.Verify(body, sig, c.key); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidPayload, err)
	}

	parts := strings.Split(body, ":")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: malformed body", model.ErrInvalidPayload)
	}
	p := &Payload{ItemID: parts[2]}
	for i, dst := range []*int64{&p.ChatID, &p.UserID, nil, &p.Amount, &p.ExpiresAt} {
		if dst == nil {
			continue
		}
		if *dst, err = strconv.ParseInt(parts[i], 10, 64); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidPayload, err)
		}
	}
	return p, nil
}
