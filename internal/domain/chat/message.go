package chat

import "time"

// Tag keys attached to machine-generated messages so the chat UI can
// filter or badge them and trace them back to the originating rule.
const (
	TagAutomated = "automated"
	TagRuleID    = "rule_id"
)

// Message is one outbound chat message as handed to a Sink.
type Message struct {
	ChannelID  string
	Body       string
	AuthorID   string
	AuthorName string
	Tags       map[string]string
	SentAt     time.Time
}
