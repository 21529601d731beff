package ranking

import "errors"

// ErrInvalidLimit reports a negative top-N or visible count.
var ErrInvalidLimit = errors.New("invalid ranking limit")
