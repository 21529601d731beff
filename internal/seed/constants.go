package seed

import "time"

// Defaults used by cmd/seed.
const (
	DefaultSales   = 1_000
	DefaultClients = 40
	DefaultTimeout = 10 * time.Second
	DefaultSettle  = 30 * time.Second
)

const (
	pollInterval         = 100 * time.Millisecond
	percentageMultiplier = 100
	directoryPermission  = 0o750
)
