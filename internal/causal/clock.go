package causal

import "time"

// nowMs is a package variable rather than a direct time.Now() call so
// tests can stub wall-clock time when asserting timestamp tie-break
// behavior deterministically.
var nowMs = func() int64 { return time.Now().UnixMilli() }
