package queue

type config struct {
	capacity int
}

// Option applies a configuration option to a queue.
type Option func(*config)

// WithCapacity sets the number of items the queue buffers.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
