// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pgadmin

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

// ErrStartupTimeout indicates the service did not accept a probe
// connection within the configured window after a start.
const ErrStartupTimeout = errors.ConstError("timed out waiting for service to accept connections")

// WaitParams tunes the poll-until-ready loop that runs after each
// service start. The service manager returns before the postmaster
// accepts connections, so the next step has to wait for readiness
// rather than race it.
type WaitParams struct {
	// Clock drives the delays; defaults to the wall clock.
	Clock clock.Clock

	// InitialDelay is the delay before the second probe. Subsequent
	// delays double up to MaxDelay.
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Timeout bounds the whole wait.
	Timeout time.Duration
}

func (p WaitParams) withDefaults() WaitParams {
	if p.Clock == nil {
		p.Clock = clock.WallClock
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return p
}

// WaitReady polls the probe with exponential backoff until it succeeds
// or the timeout elapses, in which case the last probe error is folded
// into an ErrStartupTimeout.
func WaitReady(ctx context.Context, probe func() error, params WaitParams) error {
	params = params.withDefaults()
	err := retry.Call(retry.CallArgs{
		Func:        probe,
		Attempts:    retry.UnlimitedAttempts,
		Delay:       params.InitialDelay,
		MaxDelay:    params.MaxDelay,
		MaxDuration: params.Timeout,
		BackoffFunc: retry.DoubleDelay,
		Clock:       params.Clock,
		Stop:        ctx.Done(),
		NotifyFunc: func(lastError error, attempt int) {
			logger.Debugf("service not ready (attempt %d): %v", attempt, lastError)
		},
	})
	if err == nil {
		return nil
	}
	if retry.IsDurationExceeded(err) || retry.IsAttemptsExceeded(err) {
		return errors.Annotatef(ErrStartupTimeout, "%v", retry.LastError(err))
	}
	return errors.Trace(err)
}
