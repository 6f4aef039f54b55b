package intake_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/bulkorder"
	"github.com/gobeaver/intake/driver/local"
	_ "github.com/gobeaver/intake/driver/memory"
	"github.com/gobeaver/intake/filevalidator"
	"github.com/gobeaver/intake/internal/database/dbtest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// pngFixture builds a PNG header declaring w x h pixels.
func pngFixture(w, h uint32) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	binary.Write(&b, binary.BigEndian, uint32(13))
	b.WriteString("IHDR")
	binary.Write(&b, binary.BigEndian, w)
	binary.Write(&b, binary.BigEndian, h)
	b.Write([]byte{8, 2, 0, 0, 0, 0, 0, 0, 0})
	b.Write([]byte{0, 0, 0, 0})
	b.WriteString("IEND")
	b.Write([]byte{0xAE, 0x42, 0x60, 0x82})
	return b.Bytes()
}

func TestOpenWithDrivers(t *testing.T) {
	ctx := context.Background()
	owner := intake.Owner{Kind: filevalidator.OwnerVendor, ID: "vendor-1"}

	tests := []struct {
		name string
		cfg  func(t *testing.T) *intake.Config
		disk bool
	}{
		{
			name: "memory driver",
			cfg: func(t *testing.T) *intake.Config {
				return &intake.Config{Driver: "memory", DedupStore: "memory", BulkStore: "memory"}
			},
		},
		{
			name: "local driver",
			cfg: func(t *testing.T) *intake.Config {
				return &intake.Config{Driver: "local", LocalBasePath: t.TempDir(), DedupStore: "memory", BulkStore: "memory"}
			},
			disk: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg(t)
			svc, err := intake.Open(ctx, cfg, discard)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer svc.Close()

			files := []filevalidator.File{{Name: "chair.png", DeclaredMIME: "image/png", Data: pngFixture(800, 600)}}
			res, err := svc.ValidateBatch(ctx, owner, filevalidator.CategoryProductImage, files)
			if err != nil {
				t.Fatalf("ValidateBatch() error = %v", err)
			}
			v := res.Files[0]
			if v.Verdict != intake.VerdictAccepted || v.StoragePath == "" {
				t.Fatalf("verdict = %+v", v)
			}

			if tt.disk {
				data, err := os.ReadFile(filepath.Join(cfg.LocalBasePath, filepath.FromSlash(v.StoragePath)))
				if err != nil {
					t.Fatalf("stored file: %v", err)
				}
				if !bytes.Equal(data, files[0].Data) {
					t.Error("stored content differs")
				}
			}

			res, err = svc.ValidateBatch(ctx, owner, filevalidator.CategoryProductImage, files)
			if err != nil {
				t.Fatal(err)
			}
			if res.Files[0].Verdict != intake.VerdictDuplicate {
				t.Errorf("second upload verdict = %s, want duplicate", res.Files[0].Verdict)
			}
		})
	}
}

func TestHotFolderLocal(t *testing.T) {
	dir := t.TempDir()
	fs, err := local.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	svc := intake.NewService(intake.WithLogger(discard))
	owner := intake.Owner{Kind: filevalidator.OwnerVendor, ID: "drop"}
	h, err := intake.NewHotFolder(fs, svc, owner, filevalidator.CategoryProductImage, "*.png",
		intake.WithSettleTime(100*time.Millisecond),
		intake.WithHotFolderLogger(discard),
	)
	if err != nil {
		t.Fatal(err)
	}

	// present before Run starts, picked up by the initial sweep
	if err := os.WriteFile(filepath.Join(dir, "early.png"), pngFixture(800, 600), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	waitFor := func(rel string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err == nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("timed out waiting for %s", rel)
	}

	waitFor("accepted/early.png")

	if err := os.WriteFile(filepath.Join(dir, "late.png"), []byte("<script>alert(1)</script>"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor("rejected/late.png")
	waitFor("rejected/late.png.json")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenPostgres(t *testing.T) {
	_, dsn := dbtest.Postgres(t)
	ctx := context.Background()

	svc, err := intake.Open(ctx, &intake.Config{
		Driver:      "none",
		DedupStore:  "postgres",
		BulkStore:   "postgres",
		DatabaseURL: dsn,
	}, discard)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer svc.Close()

	for _, c := range svc.Readiness() {
		if err := c.CheckReady(ctx); err != nil {
			t.Errorf("%s not ready: %v", c.Name(), err)
		}
	}

	owner := intake.Owner{Kind: filevalidator.OwnerVendor, ID: "vendor-pg"}
	files := []filevalidator.File{{Name: "chair.png", DeclaredMIME: "image/png", Data: pngFixture(800, 600)}}
	first, err := svc.ValidateBatch(ctx, owner, filevalidator.CategoryProductImage, files)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ValidateBatch(ctx, owner, filevalidator.CategoryProductImage, files)
	if err != nil {
		t.Fatal(err)
	}
	if second.Files[0].Verdict != intake.VerdictDuplicate || second.Files[0].FileID != first.Files[0].FileID {
		t.Errorf("second upload = %+v", second.Files[0])
	}

	csv := "room_name,blind_type,width_inches,height_inches,color,mount_type,quantity,installation_address,preferred_install_date\n" +
		"Lobby,Roller Shades,48,60,White,Inside Mount,5,\"1 Harbor Way, Suite 9\",2099-06-01\n"
	u, err := svc.ValidateBulkOrder(ctx, "customer-pg", "commercial_blinds_v1", "order.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetBulkStatus(ctx, u.UploadID, bulkorder.StatusProcessed); err != nil {
		t.Fatalf("SetBulkStatus() error = %v", err)
	}
	got, err := svc.BulkUpload(ctx, u.UploadID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != bulkorder.StatusProcessed {
		t.Errorf("Status = %s", got.Status)
	}
	if _, err := svc.BulkUpload(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, bulkorder.ErrUploadNotFound) {
		t.Errorf("missing upload error = %v", err)
	}
}
