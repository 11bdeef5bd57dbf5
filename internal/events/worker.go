package events

import (
	"context"
	"log/slog"
)

// Worker drains an event channel into a Publisher. It decouples request
// latency from sink latency: the service emits into a ChannelPublisher and
// the worker delivers in the background.
type Worker struct {
	sink   Publisher
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until ctx is canceled. Delivery failures are logged
// and skipped; the stream is best-effort beyond the committed registry state.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to deliver event",
					"action", event.Action,
					"token_id", event.TokenID,
					"error", err,
				)
			}
		}
	}
}

// ChannelPublisher hands events to a Worker without blocking the request
// path. A full inbox drops the event and reports it to the caller's logger
// rather than stalling a mint.
type ChannelPublisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelPublisher(inbox chan<- Event, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox, logger: logger}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	stamp(&event)
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "event inbox full, dropping event",
			"action", event.Action,
			"token_id", event.TokenID,
		)
		return nil
	}
}
