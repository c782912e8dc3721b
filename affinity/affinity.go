// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

// PinCurrentThread locks the calling goroutine to its OS thread and, when
// cpuID >= 0, pins that thread to the given logical CPU. The returned
// function undoes the lock; the CPU mask is left as set.
func PinCurrentThread(cpuID int) (release func(), err error) {
	lockThread()
	if cpuID < 0 {
		return unlockThread, nil
	}
	if err := setAffinityPlatform(cpuID); err != nil {
		unlockThread()
		return func() {}, err
	}
	return unlockThread, nil
}
