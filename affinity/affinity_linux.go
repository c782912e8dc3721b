//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func lockThread()   { runtime.LockOSThread() }
func unlockThread() { runtime.UnlockOSThread() }

// setAffinityPlatform pins the calling thread (pid 0) to cpuID.
func setAffinityPlatform(cpuID int) error {
	if cpuID >= runtime.NumCPU() {
		return errors.Errorf("affinity: cpu %d out of range (have %d)", cpuID, runtime.NumCPU())
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return errors.Wrap(unix.SchedSetaffinity(0, &set), "affinity: sched_setaffinity")
}
