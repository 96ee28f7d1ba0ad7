// Package stream turns finished response text into a consumer-paced
// character sequence.
//
// The text is always fully computed and persisted before streaming
// starts, so cancellation mid-stream never loses or re-persists a turn.
package stream

import "context"

// Chars returns a channel yielding the text one rune at a time. The
// producer is paced by the consumer and stops when ctx is canceled.
// Each call produces a fresh, finite sequence.
func Chars(ctx context.Context, text string) <-chan rune {
	out := make(chan rune)
	go func() {
		defer close(out)
		for _, r := range text {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Each calls fn for every rune of text, stopping early if ctx is
// canceled or fn returns an error. Used to bridge into callback-style
// transports (server-sent events, flow streaming).
func Each(ctx context.Context, text string, fn func(r rune) error) error {
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
