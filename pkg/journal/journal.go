// Package journal keeps an on-disk record of transaction submission
// outcomes. The wallet engine appends an entry for every broadcast attempt so
// the surrounding application can show history after a restart.
package journal

import "time"

// Status is the terminal outcome of one submission attempt.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Entry records one submission attempt. Signature is the transaction's base58
// signature; Reason carries the endpoint's rejection text for rejected
// entries.
type Entry struct {
	Signature   string    `json:"signature"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Store is the journal persistence interface.
type Store interface {
	// Append records a submission outcome.
	Append(entry Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]Entry, error)

	// Close closes the underlying store.
	Close() error
}
