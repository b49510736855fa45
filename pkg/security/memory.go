package security

import "runtime"

// ZeroBytes overwrites a byte slice holding sensitive material, such as a
// signing seed, and nudges the collector to reclaim it. Best effort: Go gives
// no hard guarantee about copies the runtime may have made.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	runtime.GC()
}
