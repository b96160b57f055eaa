package model

// Error represents a failed model invocation.
//
// Provider adapters return *Error when a chat call fails after any
// provider-level retries. The engine surfaces it to the caller as a run
// failure without retrying.
type Error struct {
	// Provider identifies the adapter that produced the error ("openai",
	// "anthropic", "google", "mock").
	Provider string

	// Message is the human-readable error description.
	Message string

	// Cause is the underlying SDK or transport error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "model invocation failed"
	if e.Message != "" {
		msg = e.Message
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *Error) Unwrap() error {
	return e.Cause
}
