// Package credential performs the credential lifecycle operations against a
// ledger node: issue, accept, revoke, and list. Transactions are signed by an
// injected signer and submitted over an injected transport; the package holds
// no state between calls and never retries a submission, since resubmitting
// without re-deriving sequence and fee fields is not safe. Retry policy
// belongs to the caller.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerline/go-credentials-sdk/codec"
	"github.com/ledgerline/go-credentials-sdk/signer"
	"github.com/ledgerline/go-credentials-sdk/transport"
)

// ErrCredentialNotFound reports that the auto-discovery revoke path found no
// unique credential of the requested type.
var ErrCredentialNotFound = errors.New("credential not found")

// Client performs credential lifecycle operations for one signing account.
type Client struct {
	tp      transport.Transport
	signer  signer.Signer
	limiter *transport.AccountLimiter
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter shares a submission limiter across clients signing for the same
// accounts. By default each client gets its own.
func WithLimiter(l *transport.AccountLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a credential client over the given transport and signer.
func NewClient(tp transport.Transport, s signer.Signer, opts ...Option) (*Client, error) {
	if tp == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if s == nil {
		return nil, fmt.Errorf("signer is required")
	}

	c := &Client{tp: tp, signer: s}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = transport.NewAccountLimiter()
	}
	return c, nil
}

// Issue creates a credential about req.Subject, signed by this client's
// account as issuer. On success it returns the ledger-entry identifier of the
// new credential, extracted from the transaction's created-entries metadata.
func (c *Client) Issue(ctx context.Context, req *IssueRequest) (*IssueResult, error) {
	if req == nil {
		return nil, fmt.Errorf("issue request is required")
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if req.CredentialType == "" {
		return nil, fmt.Errorf("credential type is required")
	}

	tx := map[string]any{
		"TransactionType": transport.TxCredentialCreate,
		"Account":         c.signer.Address(),
		"Subject":         req.Subject,
		"CredentialType":  codec.EncodeText(req.CredentialType),
	}
	if req.Expiration != nil {
		sec, err := codec.EncodeTimestamp(*req.Expiration)
		if err != nil {
			return nil, fmt.Errorf("failed to encode expiration: %w", err)
		}
		tx["Expiration"] = sec
	}
	if req.URI != "" {
		tx["URI"] = codec.EncodeText(req.URI)
	}
	if req.Memo != nil {
		tx["Memos"] = encodeMemo(req.Memo)
	}

	res, err := c.submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	entryID := res.Meta.CreatedEntry(transport.EntryTypeCredential)
	if entryID == "" {
		return nil, fmt.Errorf("%w: no created credential entry in metadata for %s",
			transport.ErrResponseMalformed, res.Hash)
	}

	return &IssueResult{
		LedgerEntryID: entryID,
		TxHash:        res.Hash,
		Validated:     res.Validated,
	}, nil
}

// Accept formally accepts a credential previously issued to this client's
// account. The signer is the subject, so only the issuing account and the
// credential type identify the credential.
func (c *Client) Accept(ctx context.Context, issuer, credentialType string) (*transport.TxResult, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if credentialType == "" {
		return nil, fmt.Errorf("credential type is required")
	}

	return c.submit(ctx, map[string]any{
		"TransactionType": transport.TxCredentialAccept,
		"Account":         c.signer.Address(),
		"Issuer":          issuer,
		"CredentialType":  codec.EncodeText(credentialType),
	})
}

// RevokeOption addresses the credential a Revoke call deletes.
type RevokeOption func(*revokeOptions)

type revokeOptions struct {
	subject string
	issuer  string
}

// WithSubject addresses the credential by its subject account.
func WithSubject(subject string) RevokeOption {
	return func(o *revokeOptions) { o.subject = subject }
}

// WithIssuer addresses the credential by its issuing account.
func WithIssuer(issuer string) RevokeOption {
	return func(o *revokeOptions) { o.issuer = issuer }
}

// Revoke deletes a credential of the given type. With no addressing options
// the client auto-discovers the target among its own entries and requires
// exactly one match; zero or several matches fail with ErrCredentialNotFound.
// Whether the caller may actually delete the credential is enforced by the
// ledger, not here.
func (c *Client) Revoke(ctx context.Context, credentialType string, opts ...RevokeOption) (*transport.TxResult, error) {
	if credentialType == "" {
		return nil, fmt.Errorf("credential type is required")
	}

	var o revokeOptions
	for _, opt := range opts {
		opt(&o)
	}

	tx := map[string]any{
		"TransactionType": transport.TxCredentialDelete,
		"Account":         c.signer.Address(),
		"CredentialType":  codec.EncodeText(credentialType),
	}

	switch {
	case o.subject != "" || o.issuer != "":
		if o.subject != "" {
			tx["Subject"] = o.subject
		}
		if o.issuer != "" {
			tx["Issuer"] = o.issuer
		}
	default:
		subject, err := c.discoverSubject(ctx, credentialType)
		if err != nil {
			return nil, err
		}
		tx["Subject"] = subject
	}

	return c.submit(ctx, tx)
}

// discoverSubject locates the unique credential of the given type among the
// account's entries and returns its subject.
func (c *Client) discoverSubject(ctx context.Context, credentialType string) (string, error) {
	creds, err := c.List(ctx)
	if err != nil {
		return "", err
	}

	var matches []Credential
	for _, cred := range creds {
		if cred.CredentialType == credentialType {
			matches = append(matches, cred)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0].Subject, nil
	case 0:
		return "", fmt.Errorf("%w: no credential of type %q", ErrCredentialNotFound, credentialType)
	default:
		return "", fmt.Errorf("%w: %d credentials of type %q, supply a subject or issuer",
			ErrCredentialNotFound, len(matches), credentialType)
	}
}

// Pay sends a payment, optionally citing credential ledger-entry identifiers
// as authorization proof. The ledger validates each cited credential at apply
// time — existence, acceptance, expiry, and a matching entry in the
// recipient's allow-list; the client attaches identifiers and nothing more.
// A recipient with deposit authorization enabled refuses uncited payments
// with ResultNoPermission.
func (c *Client) Pay(ctx context.Context, destination, amount string, credentialIDs ...string) (*transport.TxResult, error) {
	if destination == "" {
		return nil, fmt.Errorf("destination is required")
	}
	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	tx := map[string]any{
		"TransactionType": transport.TxPayment,
		"Account":         c.signer.Address(),
		"Destination":     destination,
		"Amount":          amount,
	}
	if len(credentialIDs) > 0 {
		tx["CredentialIDs"] = credentialIDs
	}

	return c.submit(ctx, tx)
}

// ListOption narrows a List call.
type ListOption func(*listOptions)

type listOptions struct {
	subject string
}

// WithSubjectFilter keeps only credentials about the given subject.
func WithSubjectFilter(subject string) ListOption {
	return func(o *listOptions) { o.subject = subject }
}

// List returns the credential entries owned by this client's account, freshly
// queried from the ledger. An empty slice means none were found.
func (c *Client) List(ctx context.Context, opts ...ListOption) ([]Credential, error) {
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := c.tp.Query(ctx, &transport.QueryRequest{
		Command: transport.CommandAccountObjects,
		Account: c.signer.Address(),
		Filters: map[string]any{"type": transport.FilterCredential},
	})
	if err != nil {
		return nil, err
	}

	creds := make([]Credential, 0, len(res.Entries))
	for _, raw := range res.Entries {
		cred, err := decodeCredential(raw)
		if err != nil {
			return nil, err
		}
		if o.subject != "" && cred.Subject != o.subject {
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// submit signs and submits one mutating transaction, holding the account's
// submission slot for the duration so concurrent submissions cannot race on
// sequence-number assignment.
func (c *Client) submit(ctx context.Context, tx map[string]any) (*transport.TxResult, error) {
	account := c.signer.Address()
	if err := c.limiter.Acquire(ctx, account); err != nil {
		return nil, err
	}
	defer c.limiter.Release(account)

	blob, err := c.signer.Sign(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	res, err := c.tp.SubmitSignedTransaction(ctx, blob)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, &transport.SubmissionError{Code: res.ResultCode, Hash: res.Hash}
	}
	return res, nil
}
