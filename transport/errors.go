package transport

import (
	"errors"
	"fmt"
)

// ErrResponseMalformed reports a reply whose shape did not match what the
// protocol promises, e.g. a successful create whose metadata lacks the
// created-entry record. It marks a defect at the decoding boundary, never a
// ledger-side rejection.
var ErrResponseMalformed = errors.New("response malformed")

// SubmissionError reports a transaction the ledger refused. Code carries the
// engine result code verbatim so callers can distinguish expected negative
// outcomes (e.g. ResultNoPermission in a gating test) from genuine faults.
type SubmissionError struct {
	Code string
	Hash string
}

func (e *SubmissionError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("transaction %s rejected by ledger: %s", e.Hash, e.Code)
	}
	return fmt.Sprintf("transaction rejected by ledger: %s", e.Code)
}

// TransportError wraps a connectivity, timeout, or protocol-level transport
// fault. The underlying error passes through opaquely.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
