package campaigns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	t.Run("a failing item never aborts the batch", func(t *testing.T) {
		var mu sync.Mutex
		var seen []string

		summary, itemErrs := Dispatch(context.Background(), []string{"A", "B", "C"},
			func(ctx context.Context, item string) error {
				mu.Lock()
				seen = append(seen, item)
				mu.Unlock()
				if item == "B" {
					return errors.New("send rejected")
				}
				return nil
			},
			DispatchOptions{Delay: time.Millisecond},
		)

		assert.Equal(t, Summary{Sent: 2, Failed: 1, Total: 3}, summary)
		require.Len(t, itemErrs, 1)
		assert.Equal(t, 1, itemErrs[0].Index)
		assert.Equal(t, []string{"A", "B", "C"}, seen, "C is still attempted after B fails")
	})

	t.Run("a panicking item is contained like any failure", func(t *testing.T) {
		var seen []string

		summary, itemErrs := Dispatch(context.Background(), []string{"A", "B", "C"},
			func(ctx context.Context, item string) error {
				seen = append(seen, item)
				if item == "B" {
					panic("boom")
				}
				return nil
			},
			DispatchOptions{Delay: time.Millisecond},
		)

		assert.Equal(t, Summary{Sent: 2, Failed: 1, Total: 3}, summary)
		require.Len(t, itemErrs, 1)
		assert.Contains(t, itemErrs[0].Error, "send panicked")
		assert.Equal(t, []string{"A", "B", "C"}, seen)
	})

	t.Run("delays before every item except the first", func(t *testing.T) {
		delay := 30 * time.Millisecond
		start := time.Now()

		summary, _ := Dispatch(context.Background(), []int{1, 2, 3},
			func(ctx context.Context, item int) error { return nil },
			DispatchOptions{Delay: delay},
		)
		elapsed := time.Since(start)

		assert.Equal(t, Summary{Sent: 3, Failed: 0, Total: 3}, summary)
		assert.GreaterOrEqual(t, elapsed, 2*delay, "two delays for three items")
	})

	t.Run("runs strictly sequentially", func(t *testing.T) {
		var inFlight, maxInFlight int
		var mu sync.Mutex

		Dispatch(context.Background(), []int{1, 2, 3, 4},
			func(ctx context.Context, item int) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			},
			DispatchOptions{Delay: time.Millisecond},
		)

		assert.Equal(t, 1, maxInFlight)
	})

	t.Run("cancellation stops before the next item, not mid-item", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var seen []int

		summary, _ := Dispatch(ctx, []int{1, 2, 3},
			func(sctx context.Context, item int) error {
				seen = append(seen, item)
				if item == 1 {
					cancel()
				}
				return nil
			},
			DispatchOptions{Delay: 5 * time.Millisecond},
		)

		assert.Equal(t, []int{1}, seen)
		assert.Equal(t, 1, summary.Sent)
		assert.Equal(t, 0, summary.Failed)
		assert.Equal(t, 3, summary.Total)
	})

	t.Run("empty batch", func(t *testing.T) {
		summary, itemErrs := Dispatch(context.Background(), nil,
			func(ctx context.Context, item int) error { return nil },
			DispatchOptions{},
		)
		assert.Equal(t, Summary{Sent: 0, Failed: 0, Total: 0}, summary)
		assert.Empty(t, itemErrs)
	})
}
