package providers

import "time"

const (
	// shutdownTimeout bounds graceful HTTP shutdown.
	shutdownTimeout = 30 * time.Second
)
