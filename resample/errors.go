package resample

import "errors"

// ErrUnknownMode indicates a ResampleMode value outside the enumerated
// set. The source library treats this as a contract violation (asserted,
// not rejected); this package surfaces it as an error so the caller can
// turn it into the vocoder's fatal-log-and-abort convention.
var ErrUnknownMode = errors.New("resample: unknown ResampleMode")

// ErrWouldTruncate indicates the external buffer is too small to hold the
// frames the requested ratio and internal frame count would produce.
var ErrWouldTruncate = errors.New("resample: external buffer too small, output would be truncated")
