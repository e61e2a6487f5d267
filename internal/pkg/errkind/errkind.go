// Package errkind gives each error category named in the pipeline's error
// handling design its own Go type, so callers can branch on kind with
// errors.As instead of string matching.
package errkind

import "fmt"

// TransientRpcError wraps a single endpoint's failure inside an RPC
// fan-out call. It is absorbed by the fan-out's consensus policy whenever
// at least one other endpoint succeeds.
type TransientRpcError struct {
	Endpoint string
	Err      error
}

func (e *TransientRpcError) Error() string {
	return fmt.Sprintf("transient rpc error from %s: %v", e.Endpoint, e.Err)
}

func (e *TransientRpcError) Unwrap() error { return e.Err }

// AllEndpointsFailedError is raised when every configured endpoint failed
// or timed out for a single fan-out call.
type AllEndpointsFailedError struct {
	Method string
	Errors map[string]error // endpoint -> last error
}

func (e *AllEndpointsFailedError) Error() string {
	return fmt.Sprintf("all %d endpoints failed for %s", len(e.Errors), e.Method)
}

// DecodeError marks a calldata/ABI/log decoding failure. Callers receiving
// this should fall back to a conservative default rather than propagate.
type DecodeError struct {
	Context string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %v", e.Context, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ReceiptTimeoutError is raised when a transaction receipt does not appear
// within the configured wait window.
type ReceiptTimeoutError struct {
	TxHash string
}

func (e *ReceiptTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for receipt of %s", e.TxHash)
}

// DeliveryTransientError marks a delivery failure the queue should retry in
// place (e.g. a chat-platform rate limit).
type DeliveryTransientError struct {
	RetryAfterSeconds int
	Err               error
}

func (e *DeliveryTransientError) Error() string {
	return fmt.Sprintf("delivery transient error, retry after %ds: %v", e.RetryAfterSeconds, e.Err)
}

func (e *DeliveryTransientError) Unwrap() error { return e.Err }

// DeliveryTerminalError marks a delivery failure the queue must not retry:
// the item is dequeued and its future rejected.
type DeliveryTerminalError struct {
	SubscriberUnreachable bool
	Err                   error
}

func (e *DeliveryTerminalError) Error() string {
	return fmt.Sprintf("delivery terminal error (subscriber unreachable=%v): %v", e.SubscriberUnreachable, e.Err)
}

func (e *DeliveryTerminalError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed write to durable storage (high-water
// mark, token/ens/selector caches). Logged and recovered by the next
// successful write.
type PersistenceError struct {
	Target string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error writing %s: %v", e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigError marks a startup configuration problem. The process exits
// non-zero when this kind surfaces from cmd/watchtower.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
