package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RemoteSigner delegates signing to a key-custody service over HTTP. The
// service holds the account's key; this process only ever sees the resulting
// signed blob.
type RemoteSigner struct {
	endpoint string
	address  string
	apiKey   string
	client   *http.Client
}

// NewRemoteSigner creates a signer for the account held at the given signing
// service endpoint.
func NewRemoteSigner(endpoint, address, apiKey string) (*RemoteSigner, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("account address required")
	}

	return &RemoteSigner{
		endpoint: endpoint,
		address:  address,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Address implements Signer.
func (s *RemoteSigner) Address() string {
	return s.address
}

// Sign implements Signer.
func (s *RemoteSigner) Sign(ctx context.Context, tx map[string]any) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]any{
		"account": s.address,
		"tx_json": tx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out struct {
		SignedBlobHex string `json:"signed_blob_hex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	blob, err := hex.DecodeString(strings.TrimPrefix(out.SignedBlobHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed blob: %w", err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("remote signer returned an empty blob")
	}
	return blob, nil
}

var _ Signer = (*RemoteSigner)(nil)
