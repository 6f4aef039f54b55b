// Package intake validates files uploaded to a marketplace before anything
// else touches them.
//
// An upload batch goes through three stages. The [filevalidator.Enforcer]
// looks up the policy for the uploader kind and category, enforces the file
// count, and checks every file concurrently: the format is sniffed from the
// leading bytes, then size, geometry and a content security scan follow.
// Files that pass are fingerprinted by the [dedup.Deduplicator] so an owner
// cannot upload the same bytes twice under one category. Accepted files can
// finally be written to a storage driver with their SHA-256 verified.
//
// Bulk order spreadsheets take a separate path through [Service.ValidateBulkOrder]:
// the customer bulk-csv policy runs first, then the [bulkorder.Engine]
// validates the rows against a template and the record is kept in a
// [bulkorder.Store].
//
// # Basic Usage
//
//	svc := intake.NewService()
//
//	res, err := svc.ValidateBatch(ctx,
//	    intake.Owner{Kind: filevalidator.OwnerVendor, ID: "vendor-42"},
//	    filevalidator.CategoryProductImage,
//	    []filevalidator.File{{Name: "chair.png", Data: data}},
//	)
//	if err != nil {
//	    // count violation, unknown policy or a storage failure
//	}
//	for _, f := range res.Files {
//	    fmt.Println(f.Verdict, f.Result.Summary())
//	}
//
// # Configuration
//
// [Open] builds a service from a [Config] read from INTAKE_* environment
// variables:
//
//	cfg, err := intake.GetConfig()
//	svc, err := intake.Open(ctx, cfg, logger)
//	defer svc.Close()
//
// # Storage Drivers
//
// Drivers register themselves on import:
//
//	import _ "github.com/gobeaver/intake/driver/local"
//	import _ "github.com/gobeaver/intake/driver/memory"
//
// A driver implements [FileSystem] and may add the optional capabilities
// [CanMove], [CanChecksum] and [CanWatch]. The [HotFolder] needs a driver
// that can be watched.
package intake
