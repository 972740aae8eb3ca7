package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// healthTimeout bounds the startup ping of each store.
	healthTimeout = 5 * time.Second
)
