package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/filevalidator"
)

func newCheckCommand(a *app) *cobra.Command {
	var (
		ownerKind string
		ownerID   string
		category  string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:     "check FILE...",
		Short:   "Validate files as one upload batch",
		Example: "$ intake check --owner-kind vendor --owner-id v-1 --category product-image chair.png table.jpg",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := filevalidator.ParseOwnerKind(ownerKind)
			if err != nil {
				return err
			}
			cat, err := filevalidator.ParseCategory(category)
			if err != nil {
				return err
			}

			svc, err := a.offlineService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			// Oversized files are read one byte past the limit, enough for the
			// size check to reject them.
			var limit int64
			if policy, ok := svc.Enforcer().Table().Lookup(kind, cat); ok {
				limit = policy.MaxFileSize
			}
			files := make([]filevalidator.File, 0, len(args))
			for _, name := range args {
				f, err := filevalidator.ReadLocalFile(a.fs, name, limit)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			res, err := svc.ValidateBatch(cmd.Context(), intake.Owner{Kind: kind, ID: ownerID}, cat, files)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printBatch(cmd.OutOrStdout(), res)
			}

			if res.Rejected > 0 {
				return fmt.Errorf("%d of %d files rejected", res.Rejected, len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerKind, "owner-kind", "vendor", "owner kind: vendor or customer")
	cmd.Flags().StringVar(&ownerID, "owner-id", "cli", "owner id, scopes duplicate detection")
	cmd.Flags().StringVar(&category, "category", "product-image", "upload category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// readInput reads a whole input file.
func readInput(a *app, name string) ([]byte, error) {
	f, err := a.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return intake.ReadComplete(f, 0)
}

func printBatch(w io.Writer, res *intake.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tVERDICT\tFORMAT\tSIZE\tDIMENSIONS\tISSUES")
	for _, v := range res.Files {
		r := v.Result
		dims := "-"
		if r.Dimensions != nil {
			dims = fmt.Sprintf("%dx%d", r.Dimensions.Width, r.Dimensions.Height)
		}

		issues := make([]string, 0, len(r.Errors)+1)
		for _, e := range r.Errors {
			issues = append(issues, e.Message)
		}
		if v.Existing != nil {
			issues = append(issues, "same content as "+v.Existing.FileName)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Filename, v.Verdict, r.Format, humanize.Bytes(uint64(r.Size)), dims, strings.Join(issues, "; "))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d accepted, %d rejected, %d duplicates\n", res.Accepted, res.Rejected, res.Duplicates)
}
