package signer

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// LocalSigner signs transactions with a wallet held in process.
//
// The ledger's signing scheme: the transaction JSON, with SigningPubKey set
// and keys in canonical (sorted) order, is digested with SHA-512-half and the
// digest is ECDSA-signed over secp256k1. The signed blob is the same JSON with
// TxnSignature appended as hex-encoded DER.
type LocalSigner struct {
	wallet *Wallet
}

// NewLocalSigner creates a signer backed by the given wallet.
func NewLocalSigner(w *Wallet) (*LocalSigner, error) {
	if w == nil {
		return nil, fmt.Errorf("wallet is required")
	}
	return &LocalSigner{wallet: w}, nil
}

// Address implements Signer.
func (s *LocalSigner) Address() string {
	return s.wallet.Address()
}

// Sign implements Signer.
func (s *LocalSigner) Sign(_ context.Context, tx map[string]any) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	signed := make(map[string]any, len(tx)+2)
	for k, v := range tx {
		signed[k] = v
	}
	signed["SigningPubKey"] = s.wallet.PublicKeyHex()

	// encoding/json writes map keys in sorted order, which is exactly the
	// canonical form the digest is defined over.
	canonical, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize transaction: %w", err)
	}

	digest := sha512Half(canonical)
	sig := ecdsa.Sign(s.wallet.priv, digest)
	signed["TxnSignature"] = strings.ToUpper(hex.EncodeToString(sig.Serialize()))

	blob, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signed transaction: %w", err)
	}
	return blob, nil
}

// sha512Half is the first 256 bits of SHA-512, the ledger's standard digest.
func sha512Half(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:32]
}

var _ Signer = (*LocalSigner)(nil)
