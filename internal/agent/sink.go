package agent

import "github.com/haasonsaas/concierge/pkg/models"

// EventSink receives stream events produced while a turn runs. The driver
// only ever talks to the caller through a sink; it has no reference to the
// underlying socket.
//
// Send is called from the driver's goroutine. A failed Send does not abort
// the turn; the driver logs it and keeps going.
type EventSink interface {
	Send(event models.StreamEvent) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(event models.StreamEvent) error

func (f SinkFunc) Send(event models.StreamEvent) error { return f(event) }

// DiscardSink drops all events. Useful when a caller only wants the final
// transcript.
var DiscardSink EventSink = SinkFunc(func(models.StreamEvent) error { return nil })
