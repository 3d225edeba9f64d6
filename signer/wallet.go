package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" // ledger address format mandates RIPEMD-160
)

// addressVersion is the version byte prefixed to account IDs before
// base58check encoding.
const addressVersion = 0x00

// Wallet is a local secp256k1 keypair with its derived ledger address.
// Funding the account is out of scope; a fresh wallet is known to the ledger
// only once someone sends it value.
type Wallet struct {
	priv    *secp256k1.PrivateKey
	address string
}

// NewWallet generates a fresh keypair.
func NewWallet() (*Wallet, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Wallet{priv: priv, address: deriveAddress(priv)}, nil
}

// WalletFromSeed restores a wallet from its hex-encoded private key seed.
func WalletFromSeed(seedHex string) (*Wallet, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid seed length: expected 32 bytes, got %d", len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return &Wallet{priv: priv, address: deriveAddress(priv)}, nil
}

// Address returns the wallet's ledger address.
func (w *Wallet) Address() string {
	return w.address
}

// Seed returns the hex-encoded private key seed.
func (w *Wallet) Seed() string {
	return hex.EncodeToString(w.priv.Serialize())
}

// PublicKeyHex returns the compressed public key as uppercase hex, the form
// carried in a transaction's SigningPubKey field.
func (w *Wallet) PublicKeyHex() string {
	return strings.ToUpper(hex.EncodeToString(w.priv.PubKey().SerializeCompressed()))
}

// deriveAddress computes base58check(version || RIPEMD160(SHA256(pubkey))).
func deriveAddress(priv *secp256k1.PrivateKey) string {
	sha := sha256.Sum256(priv.PubKey().SerializeCompressed())
	rip := ripemd160.New()
	rip.Write(sha[:])
	return base58.CheckEncode(rip.Sum(nil), addressVersion)
}

// ValidAddress reports whether s is a well-formed ledger address.
func ValidAddress(s string) bool {
	_, version, err := base58.CheckDecode(s)
	return err == nil && version == addressVersion
}
