package model

import (
	"time"
)

const (
	// DefaultFilenameTemplate is used when neither the subscription nor
	// the application configures one.
	DefaultFilenameTemplate = "{pub_date}-{title}"
	// DefaultUpdatePeriod is how often the daemon checks for updates
	DefaultUpdatePeriod = 6 * time.Hour
	// DefaultConcurrency is the number of parallel downloads within
	// a subscription (sequential by default)
	DefaultConcurrency = 1
	// DefaultParallelUpdates is the number of subscriptions updated at once
	DefaultParallelUpdates = 4
)
