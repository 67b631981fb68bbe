// Package resilience is the policy engine governing every outbound call.
// It provides retry with exponential backoff and a shared circuit breaker per
// resource class. Policies are immutable after construction; the breaker is
// the only mutable shared state and guards its own transitions.
package resilience

// Class categorizes an outbound call so it shares one retry policy and one
// circuit breaker with every other call of the same kind.
type Class string

const (
	ClassDatabase Class = "database"
	ClassHTTP     Class = "http"
	ClassRPC      Class = "rpc"
)
