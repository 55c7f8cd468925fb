package reporter

import "time"

// Config holds configuration shared by the orchestration engine.
type Config struct {
	// OutputDir is where capture artifacts (annotated result snapshots)
	// are written.
	OutputDir string

	// FanOutConcurrency is the maximum number of search tasks executed
	// concurrently when a job fans out.
	FanOutConcurrency int

	// TopResults is how many organic results per search are inspected
	// for target posts.
	TopResults int

	// SearchTimeout bounds a single platform search call, including
	// redirect resolution and capture.
	SearchTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OutputDir:         "screenshots",
		FanOutConcurrency: 4,
		TopResults:        10,
		SearchTimeout:     30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}
