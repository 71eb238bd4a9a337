//go:build darwin

package terminal

import "time"

// On macOS very short-lived children can have their final output interleaved
// with the EOF the kernel emits when the writer goes away, unless the reader
// gets a head start.
const writerGraceDelay = 20 * time.Millisecond
