package usecase

import (
	"context"
	"errors"
	"time"

	"arenamic/internal/ports"
)

var errStopTimeout = errors.New("recorder did not finish in time")

const defaultStopGrace = 4 * time.Second

// waitForStop blocks until the recorder reports stop-complete, the grace
// period runs out or ctx is done.
func waitForStop(ctx context.Context, done <-chan struct{}, grace time.Duration) error {
	if grace <= 0 {
		grace = defaultStopGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errStopTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

type acquireResult struct {
	stream ports.MediaStream
	err    error
}

// acquireWithin requests a stream and gives up after timeout. A stream that
// arrives after giving up is released immediately.
func acquireWithin(ctx context.Context, acquirer ports.StreamAcquirer, constraints ports.MediaConstraints, timeout time.Duration) (ports.MediaStream, error) {
	if timeout <= 0 {
		return acquirer.RequestStream(ctx, constraints)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	results := make(chan acquireResult, 1)
	go func() {
		stream, err := acquirer.RequestStream(reqCtx, constraints)
		results <- acquireResult{stream: stream, err: err}
	}()

	select {
	case res := <-results:
		cancel()
		return res.stream, res.err
	case <-reqCtx.Done():
		cancel()
		go func() {
			if res := <-results; res.stream != nil {
				for _, track := range res.stream.Tracks() {
					track.Stop()
				}
			}
		}()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errPermissionTimeout
	}
}
