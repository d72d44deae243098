package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	readyInitialInterval = 50 * time.Millisecond
	readyMaxInterval     = time.Second
)

// WaitReady pings p until it answers or timeout expires. The first ping is
// immediate, later ones back off exponentially up to one second apart. On
// timeout the last ping error is included.
func WaitReady(ctx context.Context, p Pinger, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = readyInitialInterval
	b.MaxInterval = readyMaxInterval
	b.MaxElapsedTime = 0 // bounded by ctx

	var last error
	err := backoff.Retry(func() error {
		last = p.Ping(ctx)
		return last
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("timeout waiting for %s: %w (last error: %v)", name, err, last)
	}
	return nil
}
