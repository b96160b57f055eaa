package emit

// Emitter receives and processes observability events from workflow execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files, syslog
//   - Distributed tracing: OpenTelemetry
//   - Metrics: Prometheus
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: may be called concurrently from independent runs
//   - Resilient: the engine tolerates a panicking emitter, but an emitter
//     should still handle its own failures gracefully
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit should not block workflow execution. If the backend is
	// unavailable or slow, events should be buffered, dropped with
	// internal logging, or sent asynchronously.
	Emit(event Event)
}

// Multi fans an event out to every emitter in the list, in order.
//
// The invocation façade uses Multi to attach a caller-supplied list of
// observability handlers to a run.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
