package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack(t *testing.T) {
	stackTrace := Stack()
	assert.NotEmpty(t, stackTrace)
	// the caller of TestStack is the testing package
	assert.Contains(t, stackTrace, "testing.go")
	assert.NotContains(t, stackTrace, "runtime.Callers")
}

func TestStackSkip(t *testing.T) {
	var trace string
	func() {
		trace = StackSkip(0)
	}()
	first := strings.SplitN(strings.TrimSpace(trace), "\n", 2)[0]
	assert.Contains(t, first, "TestStackSkip")
}
