package relay

import (
	"context"

	kit "github.com/dudenheryana1994/deliverable-approval-submitted/internal/transport"
)

// TransportSink adapts a transport.Sender to Sink.
type TransportSink struct {
	Sender  kit.Sender
	Options kit.SendOptions
}

func (s TransportSink) Deliver(ctx context.Context, address, text string) error {
	opt := s.Options
	_, err := s.Sender.SendText(ctx, kit.ChatTarget{ChatID: address}, text, &opt)
	return err
}
