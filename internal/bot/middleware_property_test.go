package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"missile-bot/internal/config"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	replies []string
}

func (f *fakeContext) Chat() *tele.Chat   { return f.chat }
func (f *fakeContext) Sender() *tele.User { return f.sender }
func (f *fakeContext) Text() string       { return "/grant medals 10" }

func (f *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, what.(string))
	return nil
}

func run(mw tele.MiddlewareFunc, c tele.Context) bool {
	called := false
	_ = mw(func(tele.Context) error {
		called = true
		return nil
	})(c)
	return called
}

func TestWhitelistMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chats := rapid.SliceOfN(rapid.Int64Range(-1_000_000, -1), 0, 10).Draw(t, "chats")
		chatID := rapid.Int64Range(-1_000_000, -1).Draw(t, "chatID")
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chats}}

		c := &fakeContext{chat: &tele.Chat{ID: chatID, Type: tele.ChatSuperGroup}, sender: &tele.User{ID: 1}}
		if run(WhitelistMiddleware(cfg), c) != cfg.IsChatAllowed(chatID) {
			t.Fatalf("whitelist middleware disagrees with config for %d in %v", chatID, chats)
		}
	})
}

func TestWhitelistMiddlewarePassesPrivateAndChatless(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}

	private := &fakeContext{chat: &tele.Chat{ID: 42, Type: tele.ChatPrivate}, sender: &tele.User{ID: 42}}
	assert.True(t, run(WhitelistMiddleware(cfg), private))

	checkout := &fakeContext{sender: &tele.User{ID: 42}}
	assert.True(t, run(WhitelistMiddleware(cfg), checkout))
}

func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		admins := rapid.SliceOfN(rapid.Int64Range(1, 1_000), 1, 10).Draw(t, "admins")
		userID := rapid.Int64Range(1, 1_000).Draw(t, "userID")
		cfg := &config.Config{Admin: config.AdminConfig{Users: admins}}

		c := &fakeContext{chat: &tele.Chat{ID: -100, Type: tele.ChatGroup}, sender: &tele.User{ID: userID}}
		called := run(AdminMiddleware(cfg), c)
		if called != cfg.IsAdmin(userID) {
			t.Fatalf("admin middleware disagrees with config for %d in %v", userID, admins)
		}
		if !called && len(c.replies) != 1 {
			t.Fatalf("expected one rejection reply, got %v", c.replies)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	c := &fakeContext{chat: &tele.Chat{ID: -100}, sender: &tele.User{ID: 1}}
	err := RecoveryMiddleware()(func(tele.Context) error {
		panic("boom")
	})(c)
	assert.NoError(t, err)
	assert.Len(t, c.replies, 1)
}
