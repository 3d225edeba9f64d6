// Package codec translates between domain values and the wire representation
// used by the ledger: opaque byte strings travel as uppercase hex, and
// timestamps travel as seconds since the ledger epoch.
//
// All functions are pure and safe for concurrent use.
package codec

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// LedgerEpoch is the zero point of the ledger's native timestamp scale,
// a fixed offset from the Unix epoch.
var LedgerEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrMalformedEncoding reports input that is not valid hex.
var ErrMalformedEncoding = fmt.Errorf("malformed encoding")

// ErrInvalidTimestamp reports a timestamp outside the representable range.
var ErrInvalidTimestamp = fmt.Errorf("invalid timestamp")

// EncodeText encodes an arbitrary byte string as uppercase hex for wire fields
// such as CredentialType and URI.
func EncodeText(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}

// DecodeHex decodes a hex wire field back to its original byte/text form.
// Decoding is case-insensitive.
func DecodeHex(h string) (string, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not valid hex: %v", ErrMalformedEncoding, h, err)
	}
	return string(b), nil
}

// EncodeTimestamp converts calendar time to ledger-epoch seconds.
// Times before the ledger epoch are not representable.
func EncodeTimestamp(t time.Time) (uint64, error) {
	if t.Before(LedgerEpoch) {
		return 0, fmt.Errorf("%w: %s predates the ledger epoch", ErrInvalidTimestamp, t.Format(time.RFC3339))
	}
	return uint64(t.Unix() - LedgerEpoch.Unix()), nil
}

// DecodeTimestamp converts ledger-epoch seconds back to calendar time in UTC.
func DecodeTimestamp(sec uint64) (time.Time, error) {
	if sec > math.MaxInt64-uint64(LedgerEpoch.Unix()) {
		return time.Time{}, fmt.Errorf("%w: %d overflows the representable range", ErrInvalidTimestamp, sec)
	}
	return time.Unix(int64(sec)+LedgerEpoch.Unix(), 0).UTC(), nil
}
