package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobeaver/intake"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestNew(t *testing.T) {
	t.Run("creates adapter with default config", func(t *testing.T) {
		a := New()
		if a == nil {
			t.Fatal("expected adapter to be created")
		}
		if a.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", a.maxSize)
		}
	})

	t.Run("creates adapter with max size", func(t *testing.T) {
		a := New(Config{MaxSize: 1024})
		if a.maxSize != 1024 {
			t.Errorf("expected maxSize=1024, got %d", a.maxSize)
		}
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file successfully", func(t *testing.T) {
		a := New()
		content := "hello world"

		res, err := a.Write(ctx, "test.txt", strings.NewReader(content))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Checksum != sha256Hex(content) {
			t.Errorf("unexpected checksum %s", res.Checksum)
		}

		exists, err := a.FileExists(ctx, "test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Error("expected file to exist")
		}

		if a.Size() != int64(len(content)) {
			t.Errorf("expected size=%d, got %d", len(content), a.Size())
		}
	})

	t.Run("fails on path traversal", func(t *testing.T) {
		a := New()

		_, err := a.Write(ctx, "../etc/passwd", strings.NewReader("malicious"))
		if !errors.Is(err, intake.ErrNotAllowed) {
			t.Fatalf("expected ErrNotAllowed, got %v", err)
		}
	})

	t.Run("respects max size limit", func(t *testing.T) {
		a := New(Config{MaxSize: 10})

		_, err := a.Write(ctx, "large.txt", strings.NewReader("this is too large"))
		if !errors.Is(err, intake.ErrTooLarge) {
			t.Fatalf("expected ErrTooLarge, got %v", err)
		}
		if a.FileCount() != 0 {
			t.Error("rejected write must not be stored")
		}
	})

	t.Run("prevents overwrite by default", func(t *testing.T) {
		a := New()

		if _, err := a.Write(ctx, "test.txt", strings.NewReader("first")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := a.Write(ctx, "test.txt", strings.NewReader("second"))
		if !intake.IsExist(err) {
			t.Fatalf("expected ErrExist, got %v", err)
		}
	})

	t.Run("allows overwrite with option", func(t *testing.T) {
		a := New()

		if _, err := a.Write(ctx, "test.txt", strings.NewReader("first")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := a.Write(ctx, "test.txt", strings.NewReader("second"), intake.WithOverwrite(true)); err != nil {
			t.Fatalf("unexpected error with overwrite: %v", err)
		}

		data, err := a.ReadAll(ctx, "test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "second" {
			t.Errorf("expected content='second', got '%s'", data)
		}
		if a.Size() != int64(len("second")) {
			t.Errorf("expected size to track overwrite, got %d", a.Size())
		}
	})

	t.Run("checksum mismatch stores nothing", func(t *testing.T) {
		a := New()

		_, err := a.Write(ctx, "test.txt", strings.NewReader("hello"),
			intake.WithChecksum(intake.ChecksumSHA256, sha256Hex("other")))
		if !errors.Is(err, intake.ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
		if exists, _ := a.FileExists(ctx, "test.txt"); exists {
			t.Error("file must not exist after checksum mismatch")
		}
	})

	t.Run("stores content type and metadata", func(t *testing.T) {
		a := New()

		_, err := a.Write(ctx, "doc", strings.NewReader("%PDF-1.4\n"),
			intake.WithMetadata(map[string]string{"original-name": "spec.pdf"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := a.Stat(ctx, "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.ContentType != "application/pdf" {
			t.Errorf("expected sniffed application/pdf, got %q", info.ContentType)
		}
		md, ok := a.Metadata("doc")
		if !ok || md["original-name"] != "spec.pdf" {
			t.Errorf("unexpected metadata %v", md)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		a := New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := a.Write(cctx, "test.txt", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	a := New()

	if _, err := a.Write(ctx, "dir/file.txt", strings.NewReader("content")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"existing file", "dir/file.txt", "content", nil},
		{"leading slash", "/dir/file.txt", "content", nil},
		{"missing file", "dir/none.txt", "", intake.ErrNotExist},
		{"directory", "dir", "", intake.ErrIsDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := a.ReadAll(ctx, tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, data)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	a := New()

	if _, err := a.Write(ctx, "test.txt", strings.NewReader("content")); err != nil {
		t.Fatal(err)
	}
	if err := a.Delete(ctx, "test.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Size() != 0 || a.FileCount() != 0 {
		t.Errorf("expected empty adapter, got size=%d count=%d", a.Size(), a.FileCount())
	}
	if err := a.Delete(ctx, "test.txt"); !intake.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	a := New()

	if _, err := a.Write(ctx, "dir/file.txt", strings.NewReader("content")); err != nil {
		t.Fatal(err)
	}

	info, err := a.Stat(ctx, "dir/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "file.txt" || info.Size != 7 || info.IsDir {
		t.Errorf("unexpected file info %+v", info)
	}

	info, err = a.Stat(ctx, "dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.IsDir {
		t.Error("expected directory")
	}

	if _, err := a.Stat(ctx, "missing"); !intake.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestListContents(t *testing.T) {
	ctx := context.Background()
	a := New()

	for _, p := range []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"} {
		if _, err := a.Write(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	tests := []struct {
		name      string
		path      string
		recursive bool
		want      []string
	}{
		{"root", "", false, []string{"a.txt", "sub"}},
		{"root with slash", "/", false, []string{"a.txt", "sub"}},
		{"subdirectory", "sub", false, []string{"sub/b.txt", "sub/deep"}},
		{"recursive", "", true, []string{"a.txt", "sub", "sub/b.txt", "sub/deep", "sub/deep/c.txt"}},
		{"recursive subdirectory", "sub", true, []string{"sub/b.txt", "sub/deep", "sub/deep/c.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := a.ListContents(ctx, tt.path, tt.recursive)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, f := range files {
				got = append(got, f.Path)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing directory", func(t *testing.T) {
		if _, err := a.ListContents(ctx, "nope", false); !intake.IsNotExist(err) {
			t.Errorf("expected not exist, got %v", err)
		}
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	a := New()

	if _, err := a.Write(ctx, "in.csv", strings.NewReader("a,b")); err != nil {
		t.Fatal(err)
	}
	if err := a.Move(ctx, "in.csv", "accepted/in.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := a.FileExists(ctx, "in.csv"); exists {
		t.Error("source still exists")
	}
	if data, _ := a.ReadAll(ctx, "accepted/in.csv"); string(data) != "a,b" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := a.Write(ctx, "in.csv", strings.NewReader("again")); err != nil {
		t.Fatal(err)
	}
	if err := a.Move(ctx, "in.csv", "accepted/in.csv"); !intake.IsExist(err) {
		t.Errorf("expected ErrExist, got %v", err)
	}
	if err := a.Move(ctx, "missing", "x"); !intake.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestChecksum(t *testing.T) {
	ctx := context.Background()
	a := New()

	if _, err := a.Write(ctx, "f", strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		algorithm intake.ChecksumAlgorithm
		wantLen   int
	}{
		{intake.ChecksumSHA256, 64},
		{intake.ChecksumSHA512, 128},
		{intake.ChecksumCRC32, 8},
		{intake.ChecksumXXHash, 16},
	}
	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			sum, err := a.Checksum(ctx, "f", tt.algorithm)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(sum) != tt.wantLen {
				t.Errorf("expected %d hex chars, got %q", tt.wantLen, sum)
			}
		})
	}

	if err := intake.VerifyChecksum(ctx, a, "f", sha256Hex("other"), intake.ChecksumSHA256); !errors.Is(err, intake.ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New()

	events, err := a.Watch(ctx, "inbox/*.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := a.Write(ctx, "inbox/notes.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Write(ctx, "inbox/orders.csv", strings.NewReader("a,b")); err != nil {
		t.Fatal(err)
	}
	if err := a.Delete(ctx, "inbox/orders.csv"); err != nil {
		t.Fatal(err)
	}

	want := []intake.Event{
		{Path: "inbox/orders.csv", Op: intake.EventCreate},
		{Path: "inbox/orders.csv", Op: intake.EventRemove},
	}
	for _, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Errorf("expected %+v, got %+v", w, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %+v", w)
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected no further events")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	a := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "f" + strings.Repeat("x", i)
			if _, err := a.Write(ctx, name, strings.NewReader("data")); err != nil {
				t.Errorf("write %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	if a.FileCount() != 50 {
		t.Errorf("expected 50 files, got %d", a.FileCount())
	}
	if a.Size() != 200 {
		t.Errorf("expected size 200, got %d", a.Size())
	}
}
