// Package extract reads fields out of rendered profile markup. Every field is
// an ordered chain of attempts; the first attempt to produce a value wins and
// a failed or timed-out attempt simply hands over to the next one.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks an attempt that ran but found nothing
var ErrNotFound = errors.New("not found")

// Attempt is one named strategy with its own deadline
type Attempt[T any] struct {
	Name    string
	Timeout time.Duration
	Fn      func(ctx context.Context) (T, error)
}

// Result is the outcome of a strategy chain. OK is false when every attempt
// missed; Tried lists the attempts that ran, in order.
type Result[T any] struct {
	Value T
	OK    bool
	By    string
	Tried []string
}

type outcome[T any] struct {
	value T
	err   error
}

// FirstSuccess runs attempts in order and returns the first value produced.
// Errors and timeouts never escape; they only move the chain along. The
// chain stops early when ctx is done.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T]) Result[T] {
	var res Result[T]
	for _, a := range attempts {
		if ctx.Err() != nil {
			return res
		}
		res.Tried = append(res.Tried, a.Name)

		v, err := runAttempt(ctx, a)
		if err == nil {
			res.Value = v
			res.OK = true
			res.By = a.Name
			return res
		}
	}
	return res
}

// runAttempt bounds a single attempt. The attempt runs in its own goroutine
// so that a call which ignores its context cannot stall the chain.
func runAttempt[T any](ctx context.Context, a Attempt[T]) (T, error) {
	var zero T
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if a.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, a.Timeout)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("attempt %s panicked: %v", a.Name, r)}
			}
		}()
		v, err := a.Fn(attemptCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-attemptCtx.Done():
		return zero, attemptCtx.Err()
	}
}

// nonEmpty turns an empty string into a miss
func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return s, nil
}
