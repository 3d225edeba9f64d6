// Package signer holds the signing capability the credential SDK delegates
// all cryptographic work to. A Signer turns an unsigned transaction into the
// signed blob the transport submits; the SDK itself never touches key
// material.
package signer

import "context"

// Signer signs ledger transactions on behalf of one account.
type Signer interface {
	// Address returns the ledger address of the signing account.
	Address() string

	// Sign produces the signed, submittable blob for the given transaction.
	Sign(ctx context.Context, tx map[string]any) ([]byte, error)
}
