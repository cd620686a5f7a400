package transport

import "context"

// ChatTarget addresses one chat. ChatID is the raw address taken from a record:
// a numeric chat id ("123456", "-100123...") or a public "@channel" name.
type ChatTarget struct {
	ChatID   string
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    string
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers text to a chat. One call is one delivery attempt.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
