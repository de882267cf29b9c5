// Package store defines the persistence interface for startup audit
// records. Each gate and init decision is appended to a hash chain so an
// operator can tell whether the history was edited.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrChainBroken is returned by VerifyChain when a record's hash does not
// match its contents or its predecessor.
var ErrChainBroken = errors.New("store: audit hash chain broken")

// Store is the persistence interface for audit data.
// Implementations must be safe for concurrent use.
type Store interface {
	// RecordStartup fills in rec's ID, PrevHash and Hash and appends it.
	RecordStartup(ctx context.Context, rec *StartupRecord) error
	// ListStartups returns up to limit records, newest first. A limit of
	// zero or less returns every record.
	ListStartups(ctx context.Context, limit int) ([]*StartupRecord, error)
	// VerifyChain recomputes every hash, oldest first.
	VerifyChain(ctx context.Context) error

	// Close releases database resources.
	Close() error
}

// Action names what a record was written for.
type Action string

const (
	ActionCheck Action = "check"
	ActionInit  Action = "init"
)

// StartupRecord is one gate or init decision.
type StartupRecord struct {
	Seq           int64     `json:"seq"`
	ID            string    `json:"id"`
	At            time.Time `json:"at"`
	Action        Action    `json:"action"`
	LibraryPath   string    `json:"library_path"`
	Version       uint64    `json:"version"`
	VersionString string    `json:"version_string"`
	Threading     string    `json:"threading"`
	Acknowledged  string    `json:"acknowledged"`
	Passed        bool      `json:"passed"`
	Defects       []string  `json:"defects,omitempty"` // matching defect IDs
	Error         string    `json:"error,omitempty"`
	PrevHash      string    `json:"prev_hash"`
	Hash          string    `json:"hash"`
}
