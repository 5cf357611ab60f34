package testutil

import (
	"testing"
	"time"
)

// Eventually polls the condition until it holds or the deadline passes.
// Used to observe asynchronous choreography and projections, which are only
// ever eventually consistent.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
