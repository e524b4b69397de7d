// Package eventbus provides an in-process publish/subscribe channel for
// decoupled signaling between modules.
//
// Dispatch is synchronous: Publish invokes every handler registered for the
// topic, in subscription order, on the publisher's goroutine. A failing or
// panicking handler is isolated; it is logged and counted, and delivery
// continues to the remaining handlers. Use PublishAsync when the publisher
// must not block on slow subscribers.
//
// # Usage
//
//	bus := eventbus.New(eventbus.WithLogger(logger))
//	defer bus.Close(true, false)
//
//	id, _ := bus.Subscribe("frame.ready", func(payload interface{}) error {
//	    frame := payload.(*Frame)
//	    return process(frame)
//	})
//
//	n := bus.Publish("frame.ready", frame) // n = handlers that succeeded
//
//	bus.Unsubscribe(id)
//
// The subscriber list is snapshotted before handlers run, so handlers may
// subscribe, unsubscribe, or publish from within a delivery without
// deadlocking the bus.
package eventbus
