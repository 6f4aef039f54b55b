// Package filevalidator validates untrusted uploads by what their bytes are,
// not by what the client says they are.
//
// The declared MIME type and the file name never decide a verdict. The
// container format is sniffed from magic bytes, geometry and duration are read
// from the container headers, and the content is scanned for embedded markup,
// executables and polyglot signatures.
//
// # Quick Start
//
//	enforcer := filevalidator.NewEnforcer(filevalidator.DefaultPolicyTable())
//
//	results, err := enforcer.CheckBatch(ctx, filevalidator.OwnerVendor,
//	    filevalidator.CategoryProductImage, files)
//	if err != nil {
//	    // count violation or unknown policy: nothing was inspected
//	}
//	for _, r := range results {
//	    fmt.Println(r.Summary())
//	}
//
// # Policies
//
// Policies are keyed by owner kind and category and collected in an immutable
// PolicyTable. Custom policies are built fluently:
//
//	p, err := filevalidator.ForImages(filevalidator.OwnerCustomer, filevalidator.CategoryAvatar).
//	    MaxFiles(1).
//	    MaxSize(1 * filevalidator.MB).
//	    MinDimensions(100, 100).
//	    MaxDimensions(512, 512).
//	    Build()
//
// A TOML file can replace entries of the default table, see LoadPolicyOverrides.
//
// # Results
//
// CheckFile runs every check even after one fails, so a ValidationResult lists
// every violation. Valid is true exactly when Errors is empty. Security findings
// are always errors; anomalies such as high entropy or large EXIF blocks are
// warnings and never block acceptance.
//
// # Known limitations
//
// Dimensions are not decoded for lossless (VP8L) or extended (VP8X) WebP, nor
// for JPEG frames other than baseline and progressive. Such files are accepted
// without a dimension check and carry a warning.
//
// Spreadsheet lines starting with =, @, + or - are rejected as formula
// injection, including legitimate negative numbers in the first column.
package filevalidator
