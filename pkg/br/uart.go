package br

import "strings"

// StripUART returns the console lines strictly between the workload start
// and completion sentinels, both exclusive. Without a start sentinel the
// result is empty; without a completion sentinel everything after the start
// is returned. The first start match opens the window, the first completion
// match after it closes it.
func StripUART(lines []string) []string {
	stripped := []string{}
	inBody := false
	for _, line := range lines {
		if !inBody {
			if strings.HasPrefix(line, UARTStart) {
				inBody = true
			}
			continue
		}
		if strings.HasPrefix(line, UARTDone) {
			break
		}
		stripped = append(stripped, line)
	}
	return stripped
}
