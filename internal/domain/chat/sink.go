package chat

import "context"

// Sink appends a message to a chat channel. Implementations live in
// internal/infra; the dispatcher only depends on this interface. Append
// returns the transport's identifier for the delivered message.
type Sink interface {
	Append(ctx context.Context, msg *Message) (string, error)
}
