package intake

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestReadComplete(t *testing.T) {
	tests := []struct {
		name    string
		r       io.Reader
		limit   int64
		want    string
		wantErr error
	}{
		{name: "within limit", r: strings.NewReader("hello"), limit: 10, want: "hello"},
		{name: "exactly at limit", r: strings.NewReader("hello"), limit: 5, want: "hello"},
		{name: "no limit", r: strings.NewReader("hello"), limit: 0, want: "hello"},
		{name: "over limit", r: strings.NewReader("hello world"), limit: 5, wantErr: ErrTooLarge},
		{name: "broken stream", r: iotest.TimeoutReader(strings.NewReader("hello world")), limit: 0, wantErr: ErrIncomplete},
		{name: "read error", r: iotest.ErrReader(errors.New("connection reset")), limit: 10, wantErr: ErrIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadComplete(iotest.OneByteReader(tt.r), tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadComplete() error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Error("no partial data may be returned")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadComplete() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ReadComplete() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadExpected(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected int64
		limit    int64
		wantErr  error
	}{
		{name: "matching size", data: "hello", expected: 5, limit: 10},
		{name: "short stream", data: "hel", expected: 5, limit: 10, wantErr: ErrIncomplete},
		{name: "long stream", data: "hello!", expected: 5, limit: 10, wantErr: ErrIncomplete},
		{name: "announced over limit", data: "hello", expected: 50, limit: 10, wantErr: ErrTooLarge},
		{name: "negative size", data: "hello", expected: -1, limit: 10, wantErr: ErrIncomplete},
		{name: "empty file", data: "", expected: 0, limit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadExpected(strings.NewReader(tt.data), tt.expected, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadExpected() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadExpected() error = %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("ReadExpected() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestSizeLimitReader(t *testing.T) {
	r := &SizeLimitReader{R: strings.NewReader("abcdef"), Limit: 4}
	buf := make([]byte, 3)

	if n, err := r.Read(buf); n != 3 || err != nil {
		t.Fatalf("first Read() = %d, %v", n, err)
	}
	if _, err := r.Read(buf); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("second Read() error = %v, want ErrTooLarge", err)
	}
	if r.N != 6 {
		t.Errorf("N = %d, want 6", r.N)
	}
}

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		algorithm ChecksumAlgorithm
		want      string
	}{
		{ChecksumSHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{ChecksumCRC32, "3610a686"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			got, err := CalculateChecksum(strings.NewReader("hello"), tt.algorithm)
			if err != nil {
				t.Fatalf("CalculateChecksum() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateChecksum() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := CalculateChecksum(strings.NewReader("hello"), "md5"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("md5 error = %v, want ErrNotSupported", err)
	}
}

func TestNewHasher(t *testing.T) {
	tests := []struct {
		algorithm ChecksumAlgorithm
		hexLen    int
	}{
		{ChecksumSHA256, 64},
		{ChecksumSHA512, 128},
		{ChecksumCRC32, 8},
		{ChecksumXXHash, 16},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			sum, err := CalculateChecksum(strings.NewReader("hello"), tt.algorithm)
			if err != nil {
				t.Fatalf("CalculateChecksum() error = %v", err)
			}
			if len(sum) != tt.hexLen {
				t.Errorf("checksum = %q, want %d hex chars", sum, tt.hexLen)
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS()
	put(t, fs, "a.txt", []byte("hello"))

	sum := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if err := VerifyChecksum(ctx, fs, "a.txt", sum, ChecksumSHA256); err != nil {
		t.Errorf("VerifyChecksum() error = %v", err)
	}
	if err := VerifyChecksum(ctx, fs, "a.txt", strings.Repeat("0", 64), ChecksumSHA256); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("VerifyChecksum() error = %v, want ErrChecksumMismatch", err)
	}
	if err := VerifyChecksum(ctx, fs, "missing.txt", sum, ChecksumSHA256); !IsNotExist(err) {
		t.Errorf("VerifyChecksum() error = %v, want not exist", err)
	}
}
