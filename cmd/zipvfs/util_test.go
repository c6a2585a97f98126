package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_signalHelperReady_NoEnvVar_NoOp(t *testing.T) {
	os.Unsetenv(helperFDEnv)

	// Must not panic when no helper is waiting.
	assert.NotPanics(t, signalHelperReady)
}

func Test_signalHelperReady_NonNumericFD_NoOp(t *testing.T) {
	t.Setenv(helperFDEnv, "not-a-number")

	assert.NotPanics(t, signalHelperReady)
}

func Test_signalHelperReady_UnresolvableFD_NoOp(t *testing.T) {
	// A wildly out-of-range fd number resolves to nil from os.NewFile on
	// some platforms and an unwritable *os.File on others; either way this
	// must not panic.
	t.Setenv(helperFDEnv, "99999")

	assert.NotPanics(t, signalHelperReady)
}
