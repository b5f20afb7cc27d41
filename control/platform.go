// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Runtime probes common to every platform.

package control

import "runtime"

// RegisterPlatformProbes adds CPU and goroutine probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS + "/" + runtime.GOARCH
	})
}
