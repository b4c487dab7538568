package stacktrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_InternalFrames(t *testing.T) {
	var got []string
	func() {
		defer func() {
			_ = recover()
			got = Capture()
		}()
		panic("boom")
	}()

	require.NotEmpty(t, got)
	assert.True(t, strings.HasPrefix(got[0], "internal/pkg/stacktrace/stacktrace_test.go:"), got[0])
	for _, frame := range got {
		assert.True(t, strings.HasPrefix(frame, "internal/"), frame)
	}
}
