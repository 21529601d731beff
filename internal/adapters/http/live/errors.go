package live

import "errors"

// ErrClosed reports a hub that no longer accepts connections.
var ErrClosed = errors.New("live hub closed")
