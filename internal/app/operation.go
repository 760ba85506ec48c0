package app

import (
	"time"

	"filechk/internal/catalog"
)

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes.
type Operation struct {
	ID        string
	Command   string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation creates an operation for command, assumed successful until Fail.
func NewOperation(command string, clock catalog.Clock, idgen catalog.IDGenerator) *Operation {
	return &Operation{
		ID:        idgen.New(),
		Command:   command,
		StartedAt: clock.Now(),
		Status:    catalog.ScanSuccess,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = catalog.ScanFailed
}

// Failed returns true if Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == catalog.ScanFailed
}
