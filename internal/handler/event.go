// Package handler provides Telegram bot command handlers. Handlers build
// adapter events from telebot contexts and render results as plain English.
package handler

import (
	"strings"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
)

func userOf(u *tele.User) adapter.User {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return adapter.User{ID: u.ID, DisplayName: name, Username: u.Username, IsBot: u.IsBot}
}

// EventFrom builds an adapter event from a telebot context. It returns nil
// when the update has no chat or sender.
func EventFrom(c tele.Context) *adapter.Event {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	ev := &adapter.Event{
		RequestID: uuid.NewString(),
		ChatID:    chat.ID,
		ChatTitle: chat.Title,
		Private:   chat.Type == tele.ChatPrivate,
		From:      userOf(sender),
		Args:      c.Args(),
	}
	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		u := userOf(msg.ReplyTo.Sender)
		ev.ReplyTo = &u
	}
	return ev
}
