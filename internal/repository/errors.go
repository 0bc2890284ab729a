// Package repository holds the durable key/value stores the monitor keeps
// its client-side state in. Every store satisfies Store; the registry
// only ever reads one record at start-up and rewrites it after each
// mutation.
package repository

import "errors"

// ErrNotFound is returned by Get when no record exists under the key.
// Callers treat it as an empty collection rather than a failure.
var ErrNotFound = errors.New("not found")
