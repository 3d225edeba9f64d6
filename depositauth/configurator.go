// Package depositauth manages an account's deposit-authorization setting and
// its credential-gated pre-authorization allow-lists. With the flag enabled an
// account refuses inbound payments unless the sender is pre-authorized by
// address, or presents an accepted, unexpired credential matching an entry in
// the credential-type allow-list. The flag and the allow-lists are independent
// ledger-stored settings; both are read to report accurate state.
package depositauth

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ledgerline/go-credentials-sdk/codec"
	"github.com/ledgerline/go-credentials-sdk/signer"
	"github.com/ledgerline/go-credentials-sdk/transport"
)

// CredentialAuthorization is one entry of the credential-type allow-list: any
// sender holding an accepted, unexpired credential of this (issuer, type) pair
// is authorized at payment time.
type CredentialAuthorization struct {
	Issuer         string
	CredentialType string
}

// Configurator adjusts deposit-authorization settings for one signing account.
type Configurator struct {
	tp      transport.Transport
	signer  signer.Signer
	limiter *transport.AccountLimiter
}

// Option customizes a Configurator.
type Option func(*Configurator)

// WithLimiter shares a submission limiter with other clients signing for the
// same accounts.
func WithLimiter(l *transport.AccountLimiter) Option {
	return func(c *Configurator) { c.limiter = l }
}

// NewConfigurator creates a configurator over the given transport and signer.
func NewConfigurator(tp transport.Transport, s signer.Signer, opts ...Option) (*Configurator, error) {
	if tp == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if s == nil {
		return nil, fmt.Errorf("signer is required")
	}

	c := &Configurator{tp: tp, signer: s}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = transport.NewAccountLimiter()
	}
	return c, nil
}

// EnsureEnabled turns the deposit-authorization flag on if it is not already
// set, and reports whether a change was made. Calling it twice yields false
// the second time. With no allow-list entries configured, enabling the flag
// makes the ledger reject every inbound payment lacking qualifying proof.
func (c *Configurator) EnsureEnabled(ctx context.Context) (bool, error) {
	flags, err := c.tp.AccountFlags(ctx, c.signer.Address())
	if err != nil {
		return false, err
	}
	if flags&transport.LsfDepositAuth != 0 {
		return false, nil
	}

	_, err = c.submit(ctx, map[string]any{
		"TransactionType": transport.TxAccountSet,
		"Account":         c.signer.Address(),
		"SetFlag":         transport.AsfDepositAuth,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AuthorizeCredentialType submits a pre-authorization whose credential-type
// allow-list holds exactly the given (issuer, type) pair. The list field is
// authoritative per submission: each call replaces rather than merges, so a
// caller needing a cumulative list must read the current entries first and
// resubmit the union.
func (c *Configurator) AuthorizeCredentialType(ctx context.Context, issuer, credentialType string) (*transport.TxResult, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if credentialType == "" {
		return nil, fmt.Errorf("credential type is required")
	}

	return c.submit(ctx, map[string]any{
		"TransactionType": transport.TxDepositPreauth,
		"Account":         c.signer.Address(),
		"AuthorizeCredentials": []map[string]any{
			{"Credential": map[string]any{
				"Issuer":         issuer,
				"CredentialType": codec.EncodeText(credentialType),
			}},
		},
	})
}

// AuthorizeAddress pre-authorizes a single sender account directly.
func (c *Configurator) AuthorizeAddress(ctx context.Context, sender string) (*transport.TxResult, error) {
	if sender == "" {
		return nil, fmt.Errorf("sender is required")
	}

	return c.submit(ctx, map[string]any{
		"TransactionType": transport.TxDepositPreauth,
		"Account":         c.signer.Address(),
		"Authorize":       sender,
	})
}

// preauthEntry is the wire shape of a deposit pre-authorization ledger entry.
// Exactly one of Authorize and AuthorizeCredentials is populated.
type preauthEntry struct {
	LedgerEntryType      string `mapstructure:"LedgerEntryType"`
	Authorize            string `mapstructure:"Authorize"`
	AuthorizeCredentials []struct {
		Credential struct {
			Issuer         string `mapstructure:"Issuer"`
			CredentialType string `mapstructure:"CredentialType"`
		} `mapstructure:"Credential"`
	} `mapstructure:"AuthorizeCredentials"`
}

// ListCredentialTypeAuthorizations returns the account's current
// credential-type allow-list, decoded.
func (c *Configurator) ListCredentialTypeAuthorizations(ctx context.Context) ([]CredentialAuthorization, error) {
	entries, err := c.preauthEntries(ctx)
	if err != nil {
		return nil, err
	}

	auths := make([]CredentialAuthorization, 0, len(entries))
	for _, e := range entries {
		for _, ac := range e.AuthorizeCredentials {
			credType, err := codec.DecodeHex(ac.Credential.CredentialType)
			if err != nil {
				return nil, fmt.Errorf("failed to decode allow-list CredentialType: %w", err)
			}
			auths = append(auths, CredentialAuthorization{
				Issuer:         ac.Credential.Issuer,
				CredentialType: credType,
			})
		}
	}
	return auths, nil
}

// ListAddressAuthorizations returns the account's current address allow-list.
func (c *Configurator) ListAddressAuthorizations(ctx context.Context) ([]string, error) {
	entries, err := c.preauthEntries(ctx)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Authorize != "" {
			addrs = append(addrs, e.Authorize)
		}
	}
	return addrs, nil
}

func (c *Configurator) preauthEntries(ctx context.Context) ([]preauthEntry, error) {
	res, err := c.tp.Query(ctx, &transport.QueryRequest{
		Command: transport.CommandAccountObjects,
		Account: c.signer.Address(),
		Filters: map[string]any{"type": transport.FilterDepositPreauth},
	})
	if err != nil {
		return nil, err
	}

	entries := make([]preauthEntry, 0, len(res.Entries))
	for _, raw := range res.Entries {
		var entry preauthEntry
		if err := mapstructure.Decode(raw, &entry); err != nil {
			return nil, fmt.Errorf("%w: deposit preauth entry: %v", transport.ErrResponseMalformed, err)
		}
		if entry.Authorize == "" && len(entry.AuthorizeCredentials) == 0 {
			return nil, fmt.Errorf("%w: deposit preauth entry carries no authorization", transport.ErrResponseMalformed)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Configurator) submit(ctx context.Context, tx map[string]any) (*transport.TxResult, error) {
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
