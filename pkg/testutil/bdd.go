// Package testutil holds shared test helpers.
package testutil

import "testing"

// Given, When, and Then run fn as a labeled subtest. Lifecycle walks read
// as scenarios in test output while staying plain t.Run underneath, so
// steps share state through the enclosing closure and run in order.
func Given(t *testing.T, step string, fn func(t *testing.T)) {
	t.Helper()
	runStep(t, "Given", step, fn)
}

func When(t *testing.T, step string, fn func(t *testing.T)) {
	t.Helper()
	runStep(t, "When", step, fn)
}

func Then(t *testing.T, step string, fn func(t *testing.T)) {
	t.Helper()
	runStep(t, "Then", step, fn)
}

func runStep(t *testing.T, word, step string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(word+" "+step, fn)
}
