package source

import "context"

// worker drains job indexes from in until the channel closes or the context
// is cancelled. Each index is handled by exactly one worker, so handlers may
// write to their own slot of a shared results slice without locking.
func worker(ctx context.Context, in <-chan int, handle func(int)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case i, ok := <-in:
			if !ok {
				return nil
			}
			handle(i)
		}
	}
}
