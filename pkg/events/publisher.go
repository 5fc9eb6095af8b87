package events

import "context"

// EventPublisher publishes action-invocation events.
type EventPublisher interface {
	PublishInvoked(ctx context.Context, event *ActionInvokedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (used when COMMS is disabled).
type NoOpPublisher struct{}

// PublishInvoked is a no-op.
func (p *NoOpPublisher) PublishInvoked(_ context.Context, _ *ActionInvokedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ActionInvokedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ActionInvokedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishInvoked calls the callback.
func (p *CallbackPublisher) PublishInvoked(ctx context.Context, event *ActionInvokedEvent) error {
	return p.callback(ctx, event)
}
