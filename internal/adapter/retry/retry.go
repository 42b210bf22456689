package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Once runs fn and runs it a second time only when the first attempt failed
// with a transient connection error. Model-level failures (HTTP status
// errors, bad payloads) and timeouts are returned as is.
func Once(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return err
	}
	return fn()
}

// IsTransient reports whether err looks like a dropped or refused connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
