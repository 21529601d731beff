package dedupe

import "errors"

// ErrInFlight reports a key whose first request has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is still in flight")
