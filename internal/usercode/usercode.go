// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package usercode runs test bodies inside a child runtime, guarding the
// runtime against their bad behavior.
package usercode

import (
	"context"
	"sync/atomic"
	"time"

	"go.chromium.org/isolate/errors"
)

// PanicHandler specifies how to handle panics in SafeCall. It is called on
// the panicking goroutine, so runtime/debug.Stack includes the panic
// location.
type PanicHandler func(val interface{})

// SafeCall runs a function f on a goroutine to protect callers from its
// possible bad behavior.
//
// SafeCall calls f with a context having a specified timeout; a
// non-positive timeout means no timeout. If f does not return before the
// timeout, SafeCall further waits for gracePeriod to allow some clean up. If
// f does not return after timeout + gracePeriod or ctx is canceled before f
// finishes, SafeCall abandons the goroutine and immediately returns an error.
// name is included in an error message to explain which test did not
// return.
//
// If f panics, SafeCall calls a panic handler ph to handle it. SafeCall will
// not call ph if it decides to abandon f, even if f panics later.
//
// If f calls runtime.Goexit, it is handled just like the function returns
// normally. Test bodies stop this way after a fatal assertion.
func SafeCall(ctx context.Context, name string, timeout, gracePeriod time.Duration, ph PanicHandler, f func(ctx context.Context)) error {
	// Two goroutines race for a token below.
	// The main goroutine attempts to take a token when it sees timeout
	// or context cancellation. If it successfully takes a token, SafeCall
	// returns immediately without waiting for f to finish, and ph will
	// never be called.
	// A background goroutine attempts to take a token when it finishes
	// calling f. If it successfully takes a token, it calls recover and
	// ph (if it recovered from a panic). Until the goroutine finishes
	// SafeCall will not return.
	var token atomic.Bool
	takeToken := func() bool {
		return token.CompareAndSwap(false, true)
	}

	done := make(chan struct{}) // closed when the background goroutine finishes

	go func() {
		defer close(done)

		defer func() {
			// Always call recover to avoid crashing the process.
			val := recover()

			// If the main goroutine already returned from SafeCall, do not call ph.
			if !takeToken() {
				return
			}
			if val != nil {
				ph(val)
			}
		}()

		ctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		f(ctx)
	}()

	// Block returning from SafeCall if the background goroutine is still calling ph.
	defer func() {
		if !takeToken() {
			<-done
		}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		// Allow f to clean up after timeout for gracePeriod.
		tm := time.NewTimer(timeout + gracePeriod)
		defer tm.Stop()
		expired = tm.C
	}

	select {
	case <-done:
		return nil
	case <-expired:
		return errors.Errorf("%s did not return on timeout", name)
	case <-ctx.Done():
		return ctx.Err()
	}
}
