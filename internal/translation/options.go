package translation

import "time"

// Options is the per-call configuration. A zero Timeout disables the per-call
// deadline; MaxRetries = 0 means a single attempt with no retries.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
}

// DefaultOptions returns a 30 second timeout and 3 retries.
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

func (o Options) WithTimeout(d time.Duration) Options {
	o.Timeout = d
	return o
}

func (o Options) WithoutTimeout() Options {
	o.Timeout = 0
	return o
}

func (o Options) WithMaxRetries(n int) Options {
	o.MaxRetries = n
	return o
}

func (o Options) WithoutRetries() Options {
	o.MaxRetries = 0
	return o
}
