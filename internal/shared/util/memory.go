package util

import (
	"runtime"
)

// GetHeapAllocMB is logged at debug level after each analysis run.
func GetHeapAllocMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc >> 20
}
