// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface for IO multiplexing.

package reactor

// EventMask is a set of readiness conditions.
type EventMask uint32

const (
	EventRead   EventMask = 1 << iota // data available or peer closed
	EventWrite                        // send buffer has room
	EventHangup                       // peer shut down its write side
	EventError                        // socket error or full hangup
	EventEdge                         // edge-triggered registration (Add/Modify only)
	EventWake                         // Wake was called (Wait only)
)

// EventReactor defines basic reactor operations.
type EventReactor interface {
	// Add registers fd for the conditions in mask.
	Add(fd int, mask EventMask) error

	// Modify replaces the registered conditions of fd.
	Modify(fd int, mask EventMask) error

	// Remove unregisters fd. Removing an unknown fd is not an error.
	Remove(fd int) error

	// Wait blocks until events are available or timeoutMs elapses
	// (negative blocks indefinitely) and writes them into events.
	// An interrupted wait returns zero events and no error.
	Wait(events []Event, timeoutMs int) (n int, err error)

	// Wake makes a blocked or future Wait return an EventWake event.
	// It is safe to call from any goroutine.
	Wake() error

	// Close releases the multiplexer.
	Close() error
}

// Event contains event information returned by Wait call.
type Event struct {
	Fd   int
	Mask EventMask
}

// Has reports whether every condition in m is set.
func (e Event) Has(m EventMask) bool {
	return e.Mask&m == m
}
