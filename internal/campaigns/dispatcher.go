package campaigns

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Summary is the aggregate outcome of one batch run.
type Summary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// ItemError is the retained per-item failure detail. The minimal batch
// contract only promises the aggregate counts, but the run log keeps
// these for operators.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// DispatchOptions tunes one batch run.
type DispatchOptions struct {
	// Delay is the pause before every item except the first. The
	// external send collaborator enforces a hard 2 req/s ceiling; the
	// 600ms default keeps a run at roughly 1.67 req/s, safely under it.
	Delay time.Duration
	// ItemTimeout caps each individual send. A timed-out item counts as
	// a failure like any other.
	ItemTimeout time.Duration
}

const (
	defaultSendDelay   = 600 * time.Millisecond
	defaultItemTimeout = 15 * time.Second
)

// Dispatch executes sendOne over items strictly sequentially, one
// logical worker, never concurrently. Each item is fault-isolated: an
// error or panic is counted and logged and the loop moves on, so the
// batch never aborts because of one item. Cancelling ctx stops the run
// cooperatively before the next item, never mid-send. Re-running the
// same batch is not deduplicated here; idempotence belongs to the
// selection filter plus whatever a successful send advances downstream.
func Dispatch[T any](ctx context.Context, items []T, sendOne func(context.Context, T) error, opts DispatchOptions) (Summary, []ItemError) {
	if opts.Delay <= 0 {
		opts.Delay = defaultSendDelay
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaultItemTimeout
	}

	summary := Summary{Total: len(items)}
	var itemErrs []ItemError

	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Printf("[warn] operation=batch_dispatch message=cancelled sent=%d failed=%d total=%d",
					summary.Sent, summary.Failed, summary.Total)
				return summary, itemErrs
			case <-time.After(opts.Delay):
			}
		} else if ctx.Err() != nil {
			return summary, itemErrs
		}

		if err := sendItem(ctx, item, sendOne, opts.ItemTimeout); err != nil {
			summary.Failed++
			itemErrs = append(itemErrs, ItemError{Index: i, Error: err.Error()})
			log.Printf("[warn] operation=batch_dispatch item=%d error=%v", i, err)
			continue
		}
		summary.Sent++
	}

	return summary, itemErrs
}

// sendItem wraps one send with its own timeout and panic containment.
func sendItem[T any](ctx context.Context, item T, sendOne func(context.Context, T) error, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return sendOne(sctx, item)
}
