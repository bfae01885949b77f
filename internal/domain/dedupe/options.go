package dedupe

// Option applies a configuration option to the deduper.
type Option func(*window)

// WithMaxSize bounds how many ids are remembered; the oldest is evicted
// first. maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(w *window) {
		w.maxSize = maxSize
	}
}
