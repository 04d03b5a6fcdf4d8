package partition

import "errors"

// ErrBlockTooLarge is the single failure mode a launch can report: the
// block's thread count exceeds one core's warp x lane capacity. Surfaced
// synchronously, before any hardware effect (scratch write or warp spawn).
var ErrBlockTooLarge = errors.New("partition: block exceeds core capacity")
