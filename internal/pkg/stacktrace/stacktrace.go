// Package stacktrace renders the current goroutine's call stack for panic logs.
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 64

// Capture returns the caller's stack as "file:line function" entries, most
// recent first. Frames from this repository's internal/ tree are preferred;
// when none are present, for example in a panic deep inside a library, every
// frame is returned.
func Capture() []string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var own, all []string
	for {
		f, more := frames.Next()
		if f.File != "" {
			all = append(all, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
			if _, rel, ok := strings.Cut(f.File, "/internal/"); ok {
				own = append(own, fmt.Sprintf("internal/%s:%d", rel, f.Line))
			}
		}
		if !more {
			break
		}
	}

	if len(own) > 0 {
		return own
	}
	return all
}
