package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use cases:
//   - Deployments where event logging is not desired
//   - Tests that do not assert on events
//
// Example usage:
//
//	emitter := emit.NewNullEmitter()
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
//
// The returned emitter is safe for concurrent use and has zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}
