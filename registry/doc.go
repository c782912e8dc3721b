// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package registry provides the open-addressing hash table used by the server
// as its connection registry (descriptor -> connection) and its routing table
// (path -> handler).
//
// Slots carry an explicit Empty/Tombstone/Occupied tag, so every key value,
// including the zero value, is a legal key. Tables are not safe for concurrent
// use; the server only touches them from the reactor goroutine.
package registry
