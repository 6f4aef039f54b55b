package intake

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
)

// NewHasher creates a new hash.Hash for the given algorithm.
// Returns an error if the algorithm is not supported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumSHA256, "":
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
}

// CalculateChecksum reads from the reader and calculates the checksum using
// the specified algorithm. Returns the hex-encoded checksum string.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum checks a stored file against an expected digest. It uses the
// driver's native checksum when available and reads the file otherwise.
func VerifyChecksum(ctx context.Context, fs FileReader, path, expected string, algorithm ChecksumAlgorithm) error {
	var actual string
	if checksummer, ok := fs.(CanChecksum); ok {
		sum, err := checksummer.Checksum(ctx, path, algorithm)
		if err != nil {
			return err
		}
		actual = sum
	} else {
		rc, err := fs.Read(ctx, path)
		if err != nil {
			return err
		}
		defer rc.Close()
		sum, err := CalculateChecksum(rc, algorithm)
		if err != nil {
			return err
		}
		actual = sum
	}

	if actual != expected {
		return &PathError{Op: "verify", Path: path, Err: ErrChecksumMismatch}
	}
	return nil
}
