package filevalidator

// PolicyBuilder provides a fluent API for constructing policies
type PolicyBuilder struct {
	policy Policy
}

// NewPolicyBuilder starts a policy for the given owner kind and category.
func NewPolicyBuilder(owner OwnerKind, category Category) *PolicyBuilder {
	return &PolicyBuilder{
		policy: Policy{Owner: owner, Category: category},
	}
}

// From starts a builder from a copy of an existing policy.
func From(p Policy) *PolicyBuilder {
	return &PolicyBuilder{policy: p.clone()}
}

// --- Count and size ---

// MaxFiles sets the per-request file count limit
func (b *PolicyBuilder) MaxFiles(n int) *PolicyBuilder {
	b.policy.MaxFiles = n
	return b
}

// MaxSize sets the maximum allowed file size
func (b *PolicyBuilder) MaxSize(size int64) *PolicyBuilder {
	b.policy.MaxFileSize = size
	return b
}

// --- Formats ---

// Accept adds accepted formats
func (b *PolicyBuilder) Accept(formats ...Format) *PolicyBuilder {
	for _, f := range formats {
		if !b.policy.Allows(f) {
			b.policy.Formats = append(b.policy.Formats, f)
		}
	}
	return b
}

// AcceptKind adds every format of the given kind
func (b *PolicyBuilder) AcceptKind(kind Kind) *PolicyBuilder {
	for _, f := range AllFormats() {
		if f.Kind() == kind {
			b.Accept(f)
		}
	}
	return b
}

// --- Geometry ---

// MinDimensions sets the smallest accepted width and height
func (b *PolicyBuilder) MinDimensions(width, height int) *PolicyBuilder {
	b.policy.MinDimensions = &Dimensions{Width: width, Height: height}
	return b
}

// MaxDimensions sets the largest accepted width and height
func (b *PolicyBuilder) MaxDimensions(width, height int) *PolicyBuilder {
	b.policy.MaxDimensions = &Dimensions{Width: width, Height: height}
	return b
}

// MaxDuration sets the video duration limit in seconds
func (b *PolicyBuilder) MaxDuration(seconds float64) *PolicyBuilder {
	b.policy.MaxDurationSeconds = seconds
	return b
}

// MaxRows sets the spreadsheet data row limit
func (b *PolicyBuilder) MaxRows(n int) *PolicyBuilder {
	b.policy.MaxRows = n
	return b
}

// --- Build ---

// Build validates and returns the policy.
func (b *PolicyBuilder) Build() (Policy, error) {
	p := b.policy.clone()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// MustBuild is like Build but panics on an inconsistent policy.
// It is meant for static tables.
func (b *PolicyBuilder) MustBuild() Policy {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// --- Presets ---

// ForImages creates a builder accepting JPEG and PNG
func ForImages(owner OwnerKind, category Category) *PolicyBuilder {
	return NewPolicyBuilder(owner, category).Accept(FormatJPEG, FormatPNG)
}

// ForVideo creates a builder accepting MP4 and WebM
func ForVideo(owner OwnerKind, category Category) *PolicyBuilder {
	return NewPolicyBuilder(owner, category).Accept(FormatMP4, FormatWebM)
}

// ForSpreadsheets creates a builder accepting CSV
func ForSpreadsheets(owner OwnerKind) *PolicyBuilder {
	return NewPolicyBuilder(owner, CategoryBulkCSV).Accept(FormatCSV)
}
