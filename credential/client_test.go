package credential

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/go-credentials-sdk/codec"
	"github.com/ledgerline/go-credentials-sdk/transport"
)

// fakeSigner marshals the transaction as the "signed" blob so tests can
// inspect exactly what was submitted.
type fakeSigner struct {
	address string
}

func (s *fakeSigner) Address() string { return s.address }

func (s *fakeSigner) Sign(_ context.Context, tx map[string]any) ([]byte, error) {
	return json.Marshal(tx)
}

// fakeTransport scripts transport behavior per test.
type fakeTransport struct {
	submitFn func(tx map[string]any) (*transport.TxResult, error)
	queryFn  func(req *transport.QueryRequest) (*transport.QueryResult, error)
	flagsFn  func(account string) (uint32, error)

	submitted []map[string]any
}

func (f *fakeTransport) SubmitSignedTransaction(_ context.Context, blob []byte) (*transport.TxResult, error) {
	var tx map[string]any
	if err := json.Unmarshal(blob, &tx); err != nil {
		return nil, err
	}
	f.submitted = append(f.submitted, tx)
	return f.submitFn(tx)
}

func (f *fakeTransport) Query(_ context.Context, req *transport.QueryRequest) (*transport.QueryResult, error) {
	return f.queryFn(req)
}

func (f *fakeTransport) AccountFlags(_ context.Context, account string) (uint32, error) {
	if f.flagsFn == nil {
		return 0, nil
	}
	return f.flagsFn(account)
}

func successResult(hash, createdIndex string) *transport.TxResult {
	res := &transport.TxResult{Hash: hash, ResultCode: transport.ResultSuccess, Validated: true}
	if createdIndex != "" {
		res.Meta = &transport.TxMeta{
			AffectedNodes: []transport.AffectedNode{
				{Created: &transport.NodeFields{
					LedgerEntryType: transport.EntryTypeCredential,
					LedgerIndex:     createdIndex,
				}},
			},
		}
	}
	return res
}

func newTestClient(t *testing.T, tp *fakeTransport) *Client {
	t.Helper()
	c, err := NewClient(tp, &fakeSigner{address: "rIssuer"})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil, &fakeSigner{address: "rIssuer"})
	require.Error(t, err)
	_, err = NewClient(&fakeTransport{}, nil)
	require.Error(t, err)
}

func TestIssue(t *testing.T) {
	expiry := time.Date(2027, time.August, 27, 0, 0, 0, 0, time.UTC)
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return successResult("HASH1", "ENTRY1"), nil
		},
	}
	c := newTestClient(t, tp)

	res, err := c.Issue(context.Background(), &IssueRequest{
		Subject:        "rSubject",
		CredentialType: "ExamCert",
		Expiration:     &expiry,
		URI:            "https://certs.example.com/1",
		Memo:           &Memo{Data: "graduated with honors", Type: "note"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ENTRY1", res.LedgerEntryID)
	assert.Equal(t, "HASH1", res.TxHash)
	assert.True(t, res.Validated)

	require.Len(t, tp.submitted, 1)
	tx := tp.submitted[0]
	assert.Equal(t, transport.TxCredentialCreate, tx["TransactionType"])
	assert.Equal(t, "rIssuer", tx["Account"])
	assert.Equal(t, "rSubject", tx["Subject"])
	assert.Equal(t, codec.EncodeText("ExamCert"), tx["CredentialType"])
	assert.Equal(t, codec.EncodeText("https://certs.example.com/1"), tx["URI"])

	wantSec, err := codec.EncodeTimestamp(expiry)
	require.NoError(t, err)
	assert.EqualValues(t, wantSec, tx["Expiration"])

	memos, ok := tx["Memos"].([]any)
	require.True(t, ok)
	memo := memos[0].(map[string]any)["Memo"].(map[string]any)
	assert.Equal(t, codec.EncodeText("graduated with honors"), memo["MemoData"])
	assert.Equal(t, codec.EncodeText("note"), memo["MemoType"])
}

func TestIssueValidation(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})

	_, err := c.Issue(context.Background(), nil)
	require.Error(t, err)
	_, err = c.Issue(context.Background(), &IssueRequest{CredentialType: "ExamCert"})
	require.Error(t, err)
	_, err = c.Issue(context.Background(), &IssueRequest{Subject: "rSubject"})
	require.Error(t, err)
}

func TestIssueRejected(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return &transport.TxResult{Hash: "HASH2", ResultCode: transport.ResultDuplicate}, nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.Issue(context.Background(), &IssueRequest{Subject: "rSubject", CredentialType: "ExamCert"})
	require.Error(t, err)

	var se *transport.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, transport.ResultDuplicate, se.Code)
	assert.Equal(t, "HASH2", se.Hash)
}

func TestIssueMissingCreatedEntry(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			// Success result whose metadata lacks the created entry.
			return &transport.TxResult{Hash: "HASH3", ResultCode: transport.ResultSuccess}, nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.Issue(context.Background(), &IssueRequest{Subject: "rSubject", CredentialType: "ExamCert"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrResponseMalformed)
}

func TestIssueExpirationBeforeEpoch(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})
	tooEarly := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := c.Issue(context.Background(), &IssueRequest{
		Subject:        "rSubject",
		CredentialType: "ExamCert",
		Expiration:     &tooEarly,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrInvalidTimestamp)
}

func TestAccept(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return successResult("HASH4", ""), nil
		},
	}
	c := newTestClient(t, tp)

	res, err := c.Accept(context.Background(), "rOther", "ExamCert")
	require.NoError(t, err)
	assert.Equal(t, "HASH4", res.Hash)

	tx := tp.submitted[0]
	assert.Equal(t, transport.TxCredentialAccept, tx["TransactionType"])
	assert.Equal(t, "rIssuer", tx["Account"])
	assert.Equal(t, "rOther", tx["Issuer"])
	assert.Equal(t, codec.EncodeText("ExamCert"), tx["CredentialType"])
	// The signer is the subject; no Subject field travels.
	_, hasSubject := tx["Subject"]
	assert.False(t, hasSubject)
}

func TestAcceptValidation(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})
	_, err := c.Accept(context.Background(), "", "ExamCert")
	require.Error(t, err)
	_, err = c.Accept(context.Background(), "rOther", "")
	require.Error(t, err)
}

func credentialObject(issuer, subject, credType, index string, flags uint32) map[string]any {
	return map[string]any{
		"LedgerEntryType": transport.EntryTypeCredential,
		"Flags":           flags,
		"Issuer":          issuer,
		"Subject":         subject,
		"CredentialType":  codec.EncodeText(credType),
		"index":           index,
	}
}

func TestRevokeWithSubject(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return successResult("HASH5", ""), nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.Revoke(context.Background(), "ExamCert", WithSubject("rSubject"))
	require.NoError(t, err)

	tx := tp.submitted[0]
	assert.Equal(t, transport.TxCredentialDelete, tx["TransactionType"])
	assert.Equal(t, "rSubject", tx["Subject"])
	_, hasIssuer := tx["Issuer"]
	assert.False(t, hasIssuer)
}

func TestRevokeWithIssuer(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return successResult("HASH6", ""), nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.Revoke(context.Background(), "ExamCert", WithIssuer("rOther"))
	require.NoError(t, err)

	tx := tp.submitted[0]
	assert.Equal(t, "rOther", tx["Issuer"])
	_, hasSubject := tx["Subject"]
	assert.False(t, hasSubject)
}

func TestRevokeAutoDiscovery(t *testing.T) {
	tests := []struct {
		name      string
		entries   []map[string]any
		wantErr   error
		wantSubj  string
		submitted bool
	}{
		{
			name: "exactly one match",
			entries: []map[string]any{
				credentialObject("rIssuer", "rSubject", "ExamCert", "E1", 0),
				credentialObject("rIssuer", "rSubject", "OtherType", "E2", 0),
			},
			wantSubj:  "rSubject",
			submitted: true,
		},
		{
			name:    "zero matches",
			entries: nil,
			wantErr: ErrCredentialNotFound,
		},
		{
			name: "ambiguous matches",
			entries: []map[string]any{
				credentialObject("rIssuer", "rAlice", "ExamCert", "E1", 0),
				credentialObject("rIssuer", "rBob", "ExamCert", "E2", 0),
			},
			wantErr: ErrCredentialNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &fakeTransport{
				submitFn: func(tx map[string]any) (*transport.TxResult, error) {
					return successResult("HASH7", ""), nil
				},
				queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
					return &transport.QueryResult{Entries: tt.entries}, nil
				},
			}
			c := newTestClient(t, tp)

			_, err := c.Revoke(context.Background(), "ExamCert")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, tp.submitted)
				return
			}
			require.NoError(t, err)
			require.Len(t, tp.submitted, 1)
			assert.Equal(t, tt.wantSubj, tp.submitted[0]["Subject"])
		})
	}
}

func TestList(t *testing.T) {
	expiry, err := codec.EncodeTimestamp(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	entry := credentialObject("rIssuer", "rSubject", "ExamCert", "E1", transport.LsfAccepted)
	entry["Expiration"] = expiry
	entry["URI"] = codec.EncodeText("https://certs.example.com/1")
	entry["Memos"] = []any{
		map[string]any{"Memo": map[string]any{
			"MemoData": codec.EncodeText("graduated with honors"),
			"MemoType": codec.EncodeText("note"),
		}},
	}

	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			assert.Equal(t, transport.CommandAccountObjects, req.Command)
			assert.Equal(t, "rIssuer", req.Account)
			assert.Equal(t, transport.FilterCredential, req.Filters["type"])
			return &transport.QueryResult{Entries: []map[string]any{
				entry,
				credentialObject("rIssuer", "rOther", "ExamCert", "E2", 0),
			}}, nil
		},
	}
	c := newTestClient(t, tp)

	creds, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, creds, 2)

	got := creds[0]
	assert.Equal(t, "rIssuer", got.Issuer)
	assert.Equal(t, "rSubject", got.Subject)
	assert.Equal(t, "ExamCert", got.CredentialType)
	assert.True(t, got.Accepted)
	assert.Equal(t, "E1", got.LedgerEntryID)
	assert.Equal(t, "https://certs.example.com/1", got.URI)
	require.NotNil(t, got.Expiration)
	assert.Equal(t, 2027, got.Expiration.Year())
	require.NotNil(t, got.Memo)
	assert.Equal(t, "graduated with honors", got.Memo.Data)
	assert.Equal(t, "note", got.Memo.Type)

	assert.False(t, creds[1].Accepted)
}

func TestListSubjectFilter(t *testing.T) {
	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			return &transport.QueryResult{Entries: []map[string]any{
				credentialObject("rIssuer", "rAlice", "ExamCert", "E1", 0),
				credentialObject("rIssuer", "rBob", "ExamCert", "E2", 0),
			}}, nil
		},
	}
	c := newTestClient(t, tp)

	creds, err := c.List(context.Background(), WithSubjectFilter("rBob"))
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "rBob", creds[0].Subject)
}

func TestListEmpty(t *testing.T) {
	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			return &transport.QueryResult{}, nil
		},
	}
	c := newTestClient(t, tp)

	creds, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, creds)
	assert.NotNil(t, creds)
}

func TestListTransportErrorPassesThrough(t *testing.T) {
	cause := &transport.TransportError{Op: "account_objects", Err: errors.New("connection lost")}
	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			return nil, cause
		},
	}
	c := newTestClient(t, tp)

	_, err := c.List(context.Background())
	require.Error(t, err)
	var te *transport.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestListMalformedEntry(t *testing.T) {
	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			return &transport.QueryResult{Entries: []map[string]any{
				{"LedgerEntryType": transport.EntryTypeCredential}, // missing everything
			}}, nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrResponseMalformed)
}

func TestListUndecodableCredentialType(t *testing.T) {
	entry := credentialObject("rIssuer", "rSubject", "ExamCert", "E1", 0)
	entry["CredentialType"] = "not-hex"
	tp := &fakeTransport{
		queryFn: func(req *transport.QueryRequest) (*transport.QueryResult, error) {
			return &transport.QueryResult{Entries: []map[string]any{entry}}, nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrMalformedEncoding)
}

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Credential{Expiration: &past}).Expired(now))
	assert.False(t, (&Credential{Expiration: &future}).Expired(now))
	assert.False(t, (&Credential{}).Expired(now))
}

func TestPay(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return &transport.TxResult{Hash: "HASHP", ResultCode: transport.ResultSuccess, Validated: true}, nil
		},
	}
	c := newTestClient(t, tp)

	res, err := c.Pay(context.Background(), "rMerchant", "1000000", "CRED1", "CRED2")
	require.NoError(t, err)
	assert.True(t, res.Validated)

	require.Len(t, tp.submitted, 1)
	tx := tp.submitted[0]
	assert.Equal(t, transport.TxPayment, tx["TransactionType"])
	assert.Equal(t, "rIssuer", tx["Account"])
	assert.Equal(t, "rMerchant", tx["Destination"])
	assert.Equal(t, "1000000", tx["Amount"])
	assert.Equal(t, []any{"CRED1", "CRED2"}, tx["CredentialIDs"])
}

func TestPayWithoutProofOmitsCredentialIDs(t *testing.T) {
	tp := &fakeTransport{
		submitFn: func(tx map[string]any) (*transport.TxResult, error) {
			return &transport.TxResult{ResultCode: transport.ResultSuccess}, nil
		},
	}
	c := newTestClient(t, tp)

	_, err := c.Pay(context.Background(), "rMerchant", "1000000")
	require.NoError(t, err)

	require.Len(t, tp.submitted, 1)
	_, present := tp.submitted[0]["CredentialIDs"]
	assert.False(t, present)
}

func TestPayValidation(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})

	_, err := c.Pay(context.Background(), "", "1000000")
	require.Error(t, err)

	_, err = c.Pay(context.Background(), "rMerchant", "")
	require.Error(t, err)
}
