package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstSuccessOrder(t *testing.T) {
	res := FirstSuccess(context.Background(), []Attempt[string]{
		{Name: "miss", Fn: func(context.Context) (string, error) { return "", ErrNotFound }},
		{Name: "fail", Fn: func(context.Context) (string, error) { return "", errors.New("detached") }},
		{Name: "hit", Fn: func(context.Context) (string, error) { return "value", nil }},
		{Name: "never", Fn: func(context.Context) (string, error) {
			t.Error("attempt after a success must not run")
			return "", nil
		}},
	})

	assert.True(t, res.OK)
	assert.Equal(t, "value", res.Value)
	assert.Equal(t, "hit", res.By)
	assert.Equal(t, []string{"miss", "fail", "hit"}, res.Tried)
}

func TestFirstSuccessTimeoutIsAMiss(t *testing.T) {
	start := time.Now()
	res := FirstSuccess(context.Background(), []Attempt[int]{
		{Name: "stuck", Timeout: 20 * time.Millisecond, Fn: func(context.Context) (int, error) {
			// Ignores its context on purpose
			time.Sleep(time.Second)
			return 1, nil
		}},
		{Name: "fast", Timeout: time.Second, Fn: func(context.Context) (int, error) { return 2, nil }},
	})

	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Value)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFirstSuccessExhausted(t *testing.T) {
	res := FirstSuccess(context.Background(), []Attempt[string]{
		{Name: "a", Fn: func(context.Context) (string, error) { return "", ErrNotFound }},
		{Name: "b", Fn: func(context.Context) (string, error) { panic("boom") }},
	})

	assert.False(t, res.OK)
	assert.Equal(t, "", res.Value)
	assert.Equal(t, []string{"a", "b"}, res.Tried)
}

func TestFirstSuccessStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	res := FirstSuccess(ctx, []Attempt[string]{
		{Name: "cancels", Fn: func(context.Context) (string, error) {
			cancel()
			return "", ErrNotFound
		}},
		{Name: "skipped", Fn: func(context.Context) (string, error) { return "x", nil }},
	})

	assert.False(t, res.OK)
	assert.Equal(t, []string{"cancels"}, res.Tried)
}
