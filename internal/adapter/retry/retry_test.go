package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnce_RetriesTransientError(t *testing.T) {
	calls := 0
	err := Once(context.Background(), func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestOnce_RetriesOnlyOnce(t *testing.T) {
	calls := 0
	err := Once(context.Background(), func() error {
		calls++
		return fmt.Errorf("read: %w", syscall.ECONNRESET)
	})

	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.Equal(t, 2, calls)
}

func TestOnce_DoesNotRetryModelErrors(t *testing.T) {
	calls := 0
	err := Once(context.Background(), func() error {
		calls++
		return errors.New("ollama returned status 500: model not found")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnce_DoesNotRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_ = Once(ctx, func() error {
		calls++
		return fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	})
	assert.Equal(t, 1, calls)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(timeoutErr{}))
	assert.False(t, IsTransient(errors.New("status 400")))
	assert.True(t, IsTransient(&net.DNSError{Err: "no such host", Name: "ollama"}))
	assert.True(t, IsTransient(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestIsTransient_ClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := http.Get(url)
	assert.Error(t, err)
	assert.True(t, IsTransient(err))
}
