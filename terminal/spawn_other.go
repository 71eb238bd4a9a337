//go:build !darwin

package terminal

import "time"

const writerGraceDelay time.Duration = 0
