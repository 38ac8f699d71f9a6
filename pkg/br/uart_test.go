package br

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripUARTWindow(t *testing.T) {
	lines := []string{
		"noise",
		"launching firesim workload run/command",
		"a",
		"b",
		"firesim workload run/command done",
		"tail",
	}

	require.Equal(t, []string{"a", "b"}, StripUART(lines))
}

func TestStripUARTNoStart(t *testing.T) {
	require.Empty(t, StripUART([]string{"noise", "more noise", "firesim workload run/command done"}))
}

func TestStripUARTNoCompletion(t *testing.T) {
	lines := []string{
		"launching firesim workload run/command",
		"a",
		"b",
	}

	require.Equal(t, []string{"a", "b"}, StripUART(lines))
}

func TestStripUARTFirstWindowWins(t *testing.T) {
	lines := []string{
		"launching firesim workload run/command",
		"first",
		"firesim workload run/command done",
		"launching firesim workload run/command",
		"second",
		"firesim workload run/command done",
	}

	require.Equal(t, []string{"first"}, StripUART(lines))
}

func TestStripUARTEmptyInput(t *testing.T) {
	require.Empty(t, StripUART(nil))
}
