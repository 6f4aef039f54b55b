// Package dedup detects byte-identical uploads within an owner and category.
//
// Uploads are identified by the SHA-256 of their raw bytes. The lookup store
// sits behind the narrow Repository interface; the in-memory, PostgreSQL and
// Redis implementations all turn a concurrent second insert of the same key
// into ErrConflict, so Reserve can give the loser of a race a duplicate
// verdict instead of booking a second copy.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint is the SHA-256 digest of an upload's exact bytes.
type Fingerprint [sha256.Size]byte

// Sum fingerprints data.
func Sum(data []byte) Fingerprint {
	return sha256.Sum256(data)
}

// ParseFingerprint decodes a 64 character hex digest.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	if len(s) != hex.EncodedLen(len(f)) {
		return f, fmt.Errorf("fingerprint: want %d hex characters, got %d", hex.EncodedLen(len(f)), len(s))
	}
	if _, err := hex.Decode(f[:], []byte(s)); err != nil {
		return f, fmt.Errorf("fingerprint: %w", err)
	}
	return f, nil
}

// Hex returns the lowercase hex encoding.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string { return f.Hex() }

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// MarshalText encodes f as hex.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText decodes a hex digest.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Key scopes a fingerprint to one owner and category. An owner is its kind
// and id together: vendor "42" and customer "42" are different owners. The
// same bytes under a different owner or category are a different key.
type Key struct {
	OwnerKind string
	OwnerID   string
	Category  string
	Hash      Fingerprint
}

func (k Key) String() string {
	return k.OwnerKind + ":" + k.OwnerID + ":" + k.Category + ":" + k.Hash.Hex()
}

// Validate rejects keys with an empty component.
func (k Key) Validate() error {
	if k.OwnerKind == "" || k.OwnerID == "" || k.Category == "" || k.Hash.IsZero() {
		return fmt.Errorf("dedup key %q: owner kind, owner, category and hash are required", k)
	}
	return nil
}

// Ref points at the stored artifact that first claimed a key.
type Ref struct {
	OwnerKind string      `json:"ownerKind"`
	OwnerID   string      `json:"ownerId"`
	Category  string      `json:"category"`
	Hash      Fingerprint `json:"fileHash"`
	FileID    string      `json:"fileId"`
	FileName  string      `json:"fileName,omitempty"`
	Size      int64       `json:"sizeBytes"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Key returns the dedup key of the ref.
func (r Ref) Key() Key {
	return Key{OwnerKind: r.OwnerKind, OwnerID: r.OwnerID, Category: r.Category, Hash: r.Hash}
}
