package internal

import "io"

// Option customises one application run before any pipeline stage starts.
type Option func(*application)

type application struct {
	config *Config
	logOut io.Writer
}

// WithConfig supplies the run's configuration. Every entry point
// requires it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogWriter redirects the JSON log stream, which otherwise goes to
// stdout. Embedders and tests use it to capture pipeline events.
func WithLogWriter(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
