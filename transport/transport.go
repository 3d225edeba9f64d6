// Package transport defines the capability the credential SDK requires from
// the underlying ledger RPC layer, together with the wire types and result
// codes shared by every caller of that capability.
//
// The SDK never talks to the network directly; it submits signed transaction
// blobs and read-only queries through a Transport and interprets the typed
// results. A WebSocket implementation lives in transport/websocket.
package transport

import "context"

// Ledger transaction and entry type identifiers.
const (
	TxCredentialCreate = "CredentialCreate"
	TxCredentialAccept = "CredentialAccept"
	TxCredentialDelete = "CredentialDelete"
	TxAccountSet       = "AccountSet"
	TxDepositPreauth   = "DepositPreauth"
	TxPayment          = "Payment"

	EntryTypeCredential     = "Credential"
	EntryTypeDepositPreauth = "DepositPreauth"
)

// Query commands and entry-type filters understood by the ledger node.
const (
	CommandAccountObjects = "account_objects"
	CommandAccountInfo    = "account_info"

	FilterCredential     = "credential"
	FilterDepositPreauth = "deposit_preauth"
)

// Account root and credential entry flag bits.
const (
	// LsfAccepted is set on a credential entry once the subject has accepted it.
	LsfAccepted uint32 = 0x00010000

	// LsfDepositAuth is set on an account root when deposit authorization is on.
	LsfDepositAuth uint32 = 0x01000000

	// AsfDepositAuth is the AccountSet flag index that toggles deposit authorization.
	AsfDepositAuth uint32 = 9
)

// QueryRequest is a read-only ledger query.
type QueryRequest struct {
	Command string         // e.g. CommandAccountObjects
	Account string         // account whose objects are requested
	Filters map[string]any // extra parameters, e.g. {"type": FilterCredential}
}

// QueryResult holds the raw entries returned by a query. Decoding entries into
// typed domain values happens at the caller's boundary.
type QueryResult struct {
	Entries []map[string]any
}

// TxResult is the outcome of a transaction submission.
//
// Validated distinguishes a transaction the node has merely accepted for
// relay from one already applied to a validated ledger; the SDK preserves the
// distinction rather than conflating "submitted" with "final".
type TxResult struct {
	Hash       string
	ResultCode string
	Validated  bool
	Meta       *TxMeta
}

// Success reports whether the ledger applied the transaction.
func (r *TxResult) Success() bool {
	return r.ResultCode == ResultSuccess
}

// TxMeta is the transaction's application metadata.
type TxMeta struct {
	AffectedNodes []AffectedNode `mapstructure:"AffectedNodes"`
}

// AffectedNode describes one ledger entry touched by a transaction. Exactly
// one of the three fields is set.
type AffectedNode struct {
	Created  *NodeFields `mapstructure:"CreatedNode"`
	Modified *NodeFields `mapstructure:"ModifiedNode"`
	Deleted  *NodeFields `mapstructure:"DeletedNode"`
}

// NodeFields carries the identifying fields of an affected ledger entry.
type NodeFields struct {
	LedgerEntryType string         `mapstructure:"LedgerEntryType"`
	LedgerIndex     string         `mapstructure:"LedgerIndex"`
	NewFields       map[string]any `mapstructure:"NewFields"`
	FinalFields     map[string]any `mapstructure:"FinalFields"`
}

// CreatedEntry returns the LedgerIndex of the first created entry of the given
// type, or "" when the metadata holds none.
func (m *TxMeta) CreatedEntry(entryType string) string {
	if m == nil {
		return ""
	}
	for _, n := range m.AffectedNodes {
		if n.Created != nil && n.Created.LedgerEntryType == entryType {
			return n.Created.LedgerIndex
		}
	}
	return ""
}

// Transport is the ledger RPC capability injected into the SDK's clients.
//
// Implementations must be safe for concurrent use; serialization of mutating
// submissions per signing account is the caller's duty (see AccountLimiter).
type Transport interface {
	// SubmitSignedTransaction broadcasts a signed transaction blob and
	// returns the ledger's result for it.
	SubmitSignedTransaction(ctx context.Context, blob []byte) (*TxResult, error)

	// Query performs a read-only ledger query.
	Query(ctx context.Context, req *QueryRequest) (*QueryResult, error)

	// AccountFlags returns the account root's flag bitmask.
	AccountFlags(ctx context.Context, account string) (uint32, error)
}
