package mock

import (
	"strings"
	"sync"
)

// Script returns an 'ExecFunc' which answers commands containing 'match' with
// the next status from 'statuses', in order, repeating the last one once the
// script runs out. Every other command exits 0.
func Script(match string, statuses ...uint32) ExecFunc {
	var (
		mu sync.Mutex
		i  int
	)
	return func(command string) (string, uint32) {
		if len(statuses) == 0 || !strings.Contains(command, match) {
			return "", 0
		}
		mu.Lock()
		defer mu.Unlock()
		status := statuses[min(i, len(statuses)-1)]
		i++
		return "", status
	}
}
