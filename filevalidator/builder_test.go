package filevalidator

import "testing"

func TestPolicyBuilder(t *testing.T) {
	p, err := NewPolicyBuilder(OwnerCustomer, CategoryRoomPhoto).
		Accept(FormatJPEG, FormatPNG, FormatJPEG).
		MaxFiles(5).
		MaxSize(3 * MB).
		MinDimensions(640, 480).
		MaxDimensions(1920, 1080).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(p.Formats) != 2 {
		t.Errorf("Formats = %v, want jpeg and png once each", p.Formats)
	}
	if p.Key() != (PolicyKey{Owner: OwnerCustomer, Category: CategoryRoomPhoto}) {
		t.Errorf("Key() = %v", p.Key())
	}
	if p.MaxFiles != 5 || p.MaxFileSize != 3*MB {
		t.Errorf("limits = %d files, %d bytes", p.MaxFiles, p.MaxFileSize)
	}
}

func TestPolicyBuilder_AcceptKind(t *testing.T) {
	p := NewPolicyBuilder(OwnerVendor, CategoryProductImage).AcceptKind(KindImage).MustBuild()
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatGIF, FormatWebP, FormatBMP} {
		if !p.Allows(f) {
			t.Errorf("AcceptKind(image) does not allow %s", f)
		}
	}
	if p.Allows(FormatMP4) || p.Allows(FormatCSV) {
		t.Error("AcceptKind(image) allows a non-image format")
	}
}

func TestPolicyBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *PolicyBuilder
	}{
		{name: "no formats", builder: NewPolicyBuilder(OwnerVendor, CategoryAvatar)},
		{name: "unknown category", builder: NewPolicyBuilder(OwnerVendor, "banner").Accept(FormatPNG)},
		{name: "negative size", builder: ForImages(OwnerVendor, CategoryAvatar).MaxSize(-1)},
		{name: "min above max", builder: ForImages(OwnerVendor, CategoryAvatar).MinDimensions(600, 600).MaxDimensions(500, 500)},
		{name: "unknown format", builder: NewPolicyBuilder(OwnerVendor, CategoryAvatar).Accept(FormatUnknown)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil {
				t.Error("Build() error = nil")
			}
		})
	}
}

func TestPolicyBuilder_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustBuild() did not panic")
		}
	}()
	NewPolicyBuilder(OwnerVendor, CategoryAvatar).MustBuild()
}

func TestFrom_DoesNotShareState(t *testing.T) {
	base := ForImages(OwnerVendor, CategoryProductImage).MaxDimensions(100, 100).MustBuild()
	derived := From(base).Accept(FormatGIF).MaxDimensions(200, 200).MustBuild()

	if base.Allows(FormatGIF) {
		t.Error("From() shares the format slice")
	}
	if base.MaxDimensions.Width != 100 {
		t.Error("From() shares the dimension bounds")
	}
	if !derived.Allows(FormatGIF) || derived.MaxDimensions.Width != 200 {
		t.Errorf("derived = %+v", derived)
	}
}

func TestParseOwnerKindAndCategory(t *testing.T) {
	if k, err := ParseOwnerKind(" Vendor "); err != nil || k != OwnerVendor {
		t.Errorf("ParseOwnerKind() = %v, %v", k, err)
	}
	if _, err := ParseOwnerKind("admin"); err == nil {
		t.Error("ParseOwnerKind(admin) error = nil")
	}
	if c, err := ParseCategory("ROOM-PHOTO"); err != nil || c != CategoryRoomPhoto {
		t.Errorf("ParseCategory() = %v, %v", c, err)
	}
	if _, err := ParseCategory("banner"); err == nil {
		t.Error("ParseCategory(banner) error = nil")
	}
	if CategoryBulkCSV.Kind() != KindSpreadsheet || CategoryProductVideo.Kind() != KindVideo {
		t.Error("category kinds are wrong")
	}
}
