// dispatcher.go - software signal dispatcher
//
// A fixed-capacity subscription table fanning a raised signal out to
// every active subscriber in registration order.
//
// License: GPLv3 or later

package luxkernel

import "sync"

// Signal identifies a software interrupt signal.
type Signal int

// SignalCtrlC is raised by the keyboard decoder when it translates a byte
// to ASCII 0x03.
const SignalCtrlC Signal = 0

const dispatcherMaxSubscriptions = 16

// SubscriptionHandler is invoked by Raise with the context value passed at
// subscribe time. It must not block and must not call Raise for the same
// signal it was invoked for.
type SubscriptionHandler func(signal Signal, context any)

type subscription struct {
	signal  Signal
	handler SubscriptionHandler
	context any
	active  bool
}

// Dispatcher fans a Raise(signal) out to every active subscriber of that
// signal, in registration order. Safe to call from IRQ-deferred context.
type Dispatcher struct {
	mu   sync.Mutex
	subs [dispatcherMaxSubscriptions]subscription
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers handler for signal and returns an id for
// Unsubscribe, or -1 if every slot is taken.
func (d *Dispatcher) Subscribe(signal Signal, handler SubscriptionHandler, context any) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.subs {
		if !d.subs[i].active {
			d.subs[i] = subscription{signal: signal, handler: handler, context: context, active: true}
			return i
		}
	}
	return -1
}

// Unsubscribe deactivates subscription id. Unsubscribing an invalid or
// already-inactive id is a no-op.
func (d *Dispatcher) Unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.subs) {
		return
	}
	d.subs[id].active = false
}

// Raise invokes every active subscriber of signal, in registration order.
// Safe to call from IRQ-deferred context (the keyboard decoder calls this
// directly when it decodes Ctrl-C).
func (d *Dispatcher) Raise(signal Signal) {
	d.mu.Lock()
	var fire []subscription
	for _, s := range d.subs {
		if s.active && s.signal == signal {
			fire = append(fire, s)
		}
	}
	d.mu.Unlock()

	for _, s := range fire {
		s.handler(signal, s.context)
	}
}

// Reset deactivates every subscription.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.subs {
		d.subs[i] = subscription{}
	}
}
