package wallet

import "time"

// Cache durations
const (
	DefaultCacheTTL = 5 * time.Minute
)
