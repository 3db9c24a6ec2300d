package telegram

import (
	"context"
	"fmt"
	"strconv"

	"recurring_message_bot/internal/domain/chat"

	"gopkg.in/telebot.v3"
)

// TelebotSink implements chat.Sink for Telegram-backed rooms using
// gopkg.in/telebot.v3. The channel ID is the numeric Telegram chat ID in
// string form. Telegram has no message metadata field, so the rule tags
// travel only in the store/audit trail; the bot account itself marks the
// message as machine-generated.
type TelebotSink struct {
	bot *telebot.Bot
}

func NewTelebotSink(b *telebot.Bot) *TelebotSink {
	return &TelebotSink{bot: b}
}

// Append sends one message to the chat and returns the Telegram message ID.
func (s *TelebotSink) Append(_ context.Context, msg *chat.Message) (string, error) {
	chatID, err := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid telegram channel id %q: %w", msg.ChannelID, err)
	}

	sent, err := s.bot.Send(&telebot.Chat{ID: chatID}, msg.Body, &telebot.SendOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to send telegram message: %w", err)
	}
	return strconv.Itoa(sent.ID), nil
}
