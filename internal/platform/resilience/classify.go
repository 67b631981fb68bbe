package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/lib/pq"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/pkg/sentinel"
)

// DatabaseRetryable reports whether a database error is transient:
// connectivity loss, timeouts, and pq connection/resource exceptions.
// Constraint violations and query errors are caller bugs and never retried.
func DatabaseRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sentinel.ErrUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 = connection exception, 53 = insufficient resources,
		// 57P03 = cannot connect now.
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
	}
	return false
}

// RPCRetryable reports whether a gRPC error is transient. Client-fault codes
// (InvalidArgument, Unauthenticated, ...) are excluded so retries never mask
// caller bugs.
func RPCRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

// HTTPStatusRetryable reports whether an HTTP response status is transient.
func HTTPStatusRetryable(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable, http.StatusTooManyRequests,
		http.StatusRequestTimeout, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// HTTPRetryable reports whether an HTTP transport error is transient.
// Response-status classification happens separately via HTTPStatusRetryable
// because a delivered response is not an error at the transport layer.
func HTTPRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sentinel.ErrUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
