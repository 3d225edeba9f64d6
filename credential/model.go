package credential

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ledgerline/go-credentials-sdk/codec"
	"github.com/ledgerline/go-credentials-sdk/transport"
)

// Credential is a claim issued by one account about another, as read back
// from the ledger. Values are never mutated locally; every state transition
// is a round trip through the ledger.
type Credential struct {
	Issuer         string
	Subject        string
	CredentialType string
	Expiration     *time.Time
	URI            string
	Memo           *Memo

	// Accepted mirrors the entry's accepted flag bit; false until the
	// subject formally accepts.
	Accepted bool

	// LedgerEntryID is the content-derived identifier assigned at creation,
	// required to cite the credential in payment authorization.
	LedgerEntryID string
}

// Expired reports whether the credential is past its expiration at the given
// instant. The ledger does not remove expired entries, so usability checks
// must make this comparison client-side.
func (c *Credential) Expired(now time.Time) bool {
	return c.Expiration != nil && now.After(*c.Expiration)
}

// Memo is an informational annotation attached to a credential.
type Memo struct {
	Data   string
	Type   string
	Format string
}

// IssueRequest describes a credential to create.
type IssueRequest struct {
	Subject        string
	CredentialType string
	Expiration     *time.Time
	URI            string
	Memo           *Memo
}

// IssueResult reports a successful issuance.
type IssueResult struct {
	// LedgerEntryID identifies the newly created credential entry.
	LedgerEntryID string
	TxHash        string
	Validated     bool
}

// credentialEntry is the wire shape of a credential ledger entry.
type credentialEntry struct {
	LedgerEntryType string        `mapstructure:"LedgerEntryType"`
	Flags           uint32        `mapstructure:"Flags"`
	Issuer          string        `mapstructure:"Issuer"`
	Subject         string        `mapstructure:"Subject"`
	CredentialType  string        `mapstructure:"CredentialType"`
	Expiration      *uint64       `mapstructure:"Expiration"`
	URI             string        `mapstructure:"URI"`
	Memos           []memoWrapper `mapstructure:"Memos"`
	Index           string        `mapstructure:"index"`
}

type memoWrapper struct {
	Memo memoFields `mapstructure:"Memo"`
}

type memoFields struct {
	MemoData   string `mapstructure:"MemoData"`
	MemoType   string `mapstructure:"MemoType"`
	MemoFormat string `mapstructure:"MemoFormat"`
}

// decodeCredential converts one raw query entry into a Credential. Shape is
// validated once, here, instead of being assumed at each use site.
func decodeCredential(raw map[string]any) (Credential, error) {
	var entry credentialEntry
	if err := mapstructure.Decode(raw, &entry); err != nil {
		return Credential{}, fmt.Errorf("%w: credential entry: %v", transport.ErrResponseMalformed, err)
	}
	if entry.Issuer == "" || entry.Subject == "" || entry.CredentialType == "" || entry.Index == "" {
		return Credential{}, fmt.Errorf("%w: credential entry lacks required fields", transport.ErrResponseMalformed)
	}

	credType, err := codec.DecodeHex(entry.CredentialType)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to decode CredentialType: %w", err)
	}

	cred := Credential{
		Issuer:         entry.Issuer,
		Subject:        entry.Subject,
		CredentialType: credType,
		Accepted:       entry.Flags&transport.LsfAccepted != 0,
		LedgerEntryID:  entry.Index,
	}

	if entry.Expiration != nil {
		t, err := codec.DecodeTimestamp(*entry.Expiration)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to decode Expiration: %w", err)
		}
		cred.Expiration = &t
	}
	if entry.URI != "" {
		uri, err := codec.DecodeHex(entry.URI)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to decode URI: %w", err)
		}
		cred.URI = uri
	}
	if len(entry.Memos) > 0 {
		memo, err := decodeMemo(entry.Memos[0].Memo)
		if err != nil {
			return Credential{}, err
		}
		cred.Memo = memo
	}

	return cred, nil
}

func decodeMemo(m memoFields) (*Memo, error) {
	memo := &Memo{}
	var err error
	if memo.Data, err = codec.DecodeHex(m.MemoData); err != nil {
		return nil, fmt.Errorf("failed to decode MemoData: %w", err)
	}
	if m.MemoType != "" {
		if memo.Type, err = codec.DecodeHex(m.MemoType); err != nil {
			return nil, fmt.Errorf("failed to decode MemoType: %w", err)
		}
	}
	if m.MemoFormat != "" {
		if memo.Format, err = codec.DecodeHex(m.MemoFormat); err != nil {
			return nil, fmt.Errorf("failed to decode MemoFormat: %w", err)
		}
	}
	return memo, nil
}

// encodeMemo builds the wire form of a memo attachment.
func encodeMemo(m *Memo) []map[string]any {
	fields := map[string]any{"MemoData": codec.EncodeText(m.Data)}
	if m.Type != "" {
		fields["MemoType"] = codec.EncodeText(m.Type)
	}
	if m.Format != "" {
		fields["MemoFormat"] = codec.EncodeText(m.Format)
	}
	return []map[string]any{{"Memo": fields}}
}
