package intake

// Option represents a configuration option
type Option func(*Options)

// Options contains all possible options for write operations
type Options struct {
	// ContentType specifies the MIME type of the file
	ContentType string

	// Metadata contains additional metadata for the file
	Metadata map[string]string

	// Overwrite determines whether to replace an existing file
	Overwrite bool

	// ChecksumAlgorithm is used to hash the content while it is written.
	// Defaults to SHA-256.
	ChecksumAlgorithm ChecksumAlgorithm

	// ExpectedChecksum, when set, must match the hash of what was written,
	// otherwise the write fails with ErrChecksumMismatch and nothing is kept.
	ExpectedChecksum string
}

// ApplyOptions returns the options with defaults filled in.
func ApplyOptions(options ...Option) *Options {
	opts := &Options{ChecksumAlgorithm: ChecksumSHA256}
	for _, option := range options {
		option(opts)
	}
	return opts
}

// WithContentType sets the content type of the file
func WithContentType(contentType string) Option {
	return func(o *Options) {
		o.ContentType = contentType
	}
}

// WithMetadata sets additional metadata for the file
func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) {
		o.Metadata = metadata
	}
}

// WithOverwrite enables or disables overwriting existing files
func WithOverwrite(overwrite bool) Option {
	return func(o *Options) {
		o.Overwrite = overwrite
	}
}

// WithChecksum verifies the written content against expected, a hex digest
// computed with algorithm.
func WithChecksum(algorithm ChecksumAlgorithm, expected string) Option {
	return func(o *Options) {
		o.ChecksumAlgorithm = algorithm
		o.ExpectedChecksum = expected
	}
}
